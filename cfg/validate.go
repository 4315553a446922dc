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

import "fmt"

func isValidLogRotateConfig(config *LogRotateConfig) error {
	if config.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max-file-size-mb should be at least 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidResolverConfig(config *ResolverConfig) error {
	if config.FollowBudget <= 0 {
		return fmt.Errorf("follow-budget must be positive")
	}
	if config.Depth <= 0 {
		return fmt.Errorf("depth must be positive")
	}
	return nil
}

func isValidDeviceConfig(config *DeviceConfig) error {
	if config.BlockSizeBytes == 0 || config.BlockSizeBytes&(config.BlockSizeBytes-1) != 0 {
		return fmt.Errorf("block-size-bytes must be a power of two, got %d", config.BlockSizeBytes)
	}
	if config.BlockCount == 0 {
		return fmt.Errorf("block-count must be positive")
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}
	if err := isValidResolverConfig(&config.Resolver); err != nil {
		return fmt.Errorf("error parsing resolver config: %w", err)
	}
	if err := isValidDeviceConfig(&config.Device); err != nil {
		return fmt.Errorf("error parsing device config: %w", err)
	}
	return nil
}
