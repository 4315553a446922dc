// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root of the runtime configuration tree, bound from flags,
// environment variables and an optional YAML config file by cmd/root.go.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`

	Resolver ResolverConfig `yaml:"resolver"`

	Device DeviceConfig `yaml:"device"`

	Debug DebugConfig `yaml:"debug"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Severity LogSeverity  `yaml:"severity"`
	Format   LogFormat    `yaml:"format"`
	FilePath ResolvedPath `yaml:"file-path"`

	LogRotate LogRotateConfig `yaml:"log-rotate"`
}

// LogRotateConfig configures lumberjack's rotation of the log file named
// by LoggingConfig.FilePath.
type LogRotateConfig struct {
	MaxFileSizeMB   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// ResolverConfig configures pkg/pathwalk's symlink-resolution limits.
type ResolverConfig struct {
	FollowBudget int `yaml:"follow-budget"`
	Depth        int `yaml:"depth"`
}

// DeviceConfig configures the block device and MBR layer an attach
// operation brings up.
type DeviceConfig struct {
	BlockSizeBytes uint32 `yaml:"block-size-bytes"`
	BlockCount     uint64 `yaml:"block-count"`
	AutoLoadMBR    bool   `yaml:"auto-load-mbr"`
}

// DebugConfig toggles internal invariant-violation behavior.
type DebugConfig struct {
	ExitOnInvariantViolation bool         `yaml:"exit-on-invariant-violation"`
	CrashLogPath             ResolvedPath `yaml:"crash-log-path"`
}

// BindFlags registers every Config field as a pflag and binds it into
// viper under the matching dotted key.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.StringP("log-severity", "", string(InfoLogSeverity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR or OFF.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", string(TextLogFormat), "Logging output format: text or json.")
	if err := viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to a log file; logs to stderr when unset.")
	if err := viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.IntP("log-max-size-mb", "", 512, "Maximum size in MB of a log file before it is rotated.")
	if err := viper.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-max-size-mb")); err != nil {
		return err
	}

	flagSet.IntP("log-backup-count", "", 10, "Number of rotated log files to retain.")
	if err := viper.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-backup-count")); err != nil {
		return err
	}

	flagSet.BoolP("log-compress", "", true, "Compress rotated log files.")
	if err := viper.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-compress")); err != nil {
		return err
	}

	flagSet.IntP("follow-budget", "", DefaultFollowBudget, "Maximum number of symlinks a single path resolution may follow.")
	if err := viper.BindPFlag("resolver.follow-budget", flagSet.Lookup("follow-budget")); err != nil {
		return err
	}

	flagSet.IntP("depth", "", DefaultDepth, "Maximum recursive nesting depth while resolving one symlink's target.")
	if err := viper.BindPFlag("resolver.depth", flagSet.Lookup("depth")); err != nil {
		return err
	}

	flagSet.Uint32P("block-size-bytes", "", DefaultBlockSize, "Block size, in bytes, of the backing block device.")
	if err := viper.BindPFlag("device.block-size-bytes", flagSet.Lookup("block-size-bytes")); err != nil {
		return err
	}

	flagSet.Uint64P("block-count", "", 1<<16, "Number of blocks the backing block device exposes.")
	if err := viper.BindPFlag("device.block-count", flagSet.Lookup("block-count")); err != nil {
		return err
	}

	flagSet.BoolP("auto-load-mbr", "", false, "Parse an MBR partition table from block 0 of the backing device on attach.")
	if err := viper.BindPFlag("device.auto-load-mbr", flagSet.Lookup("auto-load-mbr")); err != nil {
		return err
	}

	flagSet.BoolP("debug-invariants", "", false, "Exit the process when an internal invariant is violated instead of panicking.")
	if err := viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug-invariants")); err != nil {
		return err
	}

	flagSet.StringP("crash-log-path", "", "", "Path to append a runtime crash dump to on fatal panic; disabled when unset.")
	if err := viper.BindPFlag("debug.crash-log-path", flagSet.Lookup("crash-log-path")); err != nil {
		return err
	}

	return nil
}
