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

// GetDefaultLoggingConfig returns the default configuration that is to be used
// during application startup - before any config file or flags have been
// parsed.
func GetDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Severity: InfoLogSeverity,
		Format:   TextLogFormat,
		LogRotate: LogRotateConfig{
			MaxFileSizeMB:   512,
			BackupFileCount: 10,
			Compress:        true,
		},
	}
}

// GetDefaultResolverConfig mirrors pkg/pathwalk's own defaults, so
// operators can see (and override) them without reading pathwalk's source.
func GetDefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		FollowBudget: DefaultFollowBudget,
		Depth:        DefaultDepth,
	}
}

// GetDefaultDeviceConfig returns the block-device geometry a freshly
// attached in-memory device uses when no override is given.
func GetDefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		BlockSizeBytes: DefaultBlockSize,
		BlockCount:     1 << 16,
		AutoLoadMBR:    false,
	}
}

// GetDefaultConfig assembles the full startup default: the composition of
// every section's own defaults.
func GetDefaultConfig() Config {
	return Config{
		Logging:  GetDefaultLoggingConfig(),
		Resolver: GetDefaultResolverConfig(),
		Device:   GetDefaultDeviceConfig(),
	}
}
