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

// Package cmd is the cobra-based CLI that brings up one instance of the
// kernel core described by this module: it boots a RootFS over an
// in-memory block device, optionally loads an MBR partition table, and
// resolves a path against the resulting namespace so the wiring between
// pkg/blockdev, pkg/mbr, pkg/rootfs and pkg/pathwalk can be exercised end
// to end without a real kernel around it.
package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gokernel/vfscore/cfg"
	"github.com/gokernel/vfscore/internal/logger"
	"github.com/gokernel/vfscore/internal/util"
	"github.com/gokernel/vfscore/pkg/blockdev"
	"github.com/gokernel/vfscore/pkg/mbr"
	"github.com/gokernel/vfscore/pkg/pathwalk"
	"github.com/gokernel/vfscore/pkg/rootfs"
	"github.com/gokernel/vfscore/pkg/simplefs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	MountConfig   cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "vfscore",
	Short: "Boot a standalone instance of the kernel virtual filesystem core",
	Long: `vfscore boots one instance of the mountable VFS tree described by
this module: an in-memory block device, an optional MBR partition table
over it, a root filesystem mounted from that device, and the path
resolver that walks it. It exists to exercise the wiring between
packages outside of a real kernel, not to be a production mount tool.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.ValidateConfig(&MountConfig); err != nil {
			return err
		}
		if err := logger.InitLogFile(MountConfig.Logging); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return boot(cmd.Context(), &MountConfig)
	},
}

// boot performs the dependency-ordered bring-up: a BlockDevice, the MBR
// decorator over it, a Filesystem mounted as the root RootFS, and a
// PathConfig rooted at it — logging each stage as it completes.
func boot(ctx context.Context, c *cfg.Config) error {
	logger.Infof("booting vfscore core: block_size=%d block_count=%d", c.Device.BlockSizeBytes, c.Device.BlockCount)

	dev := blockdev.NewMemDevice(c.Device.BlockSizeBytes, c.Device.BlockCount)

	if c.Device.AutoLoadMBR {
		decorator := mbr.NewDecorator(dev)
		if err := decorator.LoadPartitions(ctx); err != nil {
			return fmt.Errorf("loading MBR: %w", err)
		}
		table := decorator.Table()
		logger.Infof("MBR loaded: valid=%v", table.Valid)
	}

	fs := simplefs.New(c.Device.BlockSizeBytes, c.Device.BlockCount)
	root := rootfs.New(fs)

	rootContainer, err := root.RootContainer(ctx)
	if err != nil {
		return fmt.Errorf("resolving root inode: %w", err)
	}

	pc, err := pathwalk.NewPathConfig(ctx, rootContainer, rootContainer)
	if err != nil {
		return fmt.Errorf("building path config: %w", err)
	}

	res, err := pathwalk.ResolveWithBudget(ctx, pc, pc.Cwd, "/", true, ref(c.Resolver.FollowBudget), c.Resolver.Depth)
	if err != nil {
		return fmt.Errorf("resolving /: %w", err)
	}

	logger.Infof("vfscore booted: root resolved as kind=%d", res.Kind)
	return nil
}

func ref(v int) *int { return &v }

// Execute runs the root command, exiting the process on failure. A panic
// that escapes the boot sequence — most notably the "impossible NotFound"
// invariant violation pkg/rootfs raises when mount bookkeeping is
// corrupted — is appended to the configured crash log before the process
// exits, so the dump survives even when stderr has nowhere to go.
func Execute() {
	defer dumpCrashOnPanic()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dumpCrashOnPanic() {
	r := recover()
	if r == nil {
		return
	}

	if MountConfig.Debug.CrashLogPath != "" {
		w := &CrashWriter{fileName: string(MountConfig.Debug.CrashLogPath)}
		fmt.Fprintf(w, "panic: %v\n\n%s\n", r, debug.Stack())
	}
	if MountConfig.Debug.ExitOnInvariantViolation {
		fmt.Fprintf(os.Stderr, "panic: %v\n", r)
		os.Exit(1)
	}
	panic(r)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
		return
	}

	resolved, err := util.GetResolvedPath(cfgFile)
	if err != nil {
		configFileErr = fmt.Errorf("resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(resolved)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
}
