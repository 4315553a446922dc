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

const (
	// Logging-level constants, mirrored as plain strings for config files
	// that don't want to depend on the LogSeverity type.

	TRACE   string = "TRACE"
	DEBUG   string = "DEBUG"
	INFO    string = "INFO"
	WARNING string = "WARNING"
	ERROR   string = "ERROR"
	OFF     string = "OFF"
)

const (
	// DefaultBlockSize is the block size simplefs reports in its FSInfo and
	// MemDevice uses when none is configured.
	DefaultBlockSize uint32 = 4096

	// DefaultFollowBudget and DefaultDepth mirror pathwalk's own defaults;
	// kept here too so operators can see (and override) them without
	// reading pathwalk's source.
	DefaultFollowBudget = 40
	DefaultDepth        = 10
)
