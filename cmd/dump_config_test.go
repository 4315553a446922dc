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

package cmd

import (
	"bytes"
	"testing"

	"github.com/gokernel/vfscore/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestDumpConfigCmdPrintsMergedConfigAsYAML exercises the dump-config
// subcommand against a MountConfig the test fills from the defaults
// itself (no flag/env/file merge runs here), asserting the output is
// valid YAML that round-trips back into an equal Config.
func TestDumpConfigCmdPrintsMergedConfigAsYAML(t *testing.T) {
	MountConfig = cfg.GetDefaultConfig()
	// ResolvedPath's UnmarshalText runs every value through filepath.Abs,
	// so leaving CrashLogPath or Logging.FilePath at its zero value would
	// turn "" into the working directory on the way back in and break the
	// round-trip comparison.
	MountConfig.Debug.CrashLogPath = "/tmp/vfscore-crash.log"
	MountConfig.Logging.FilePath = "/tmp/vfscore.log"
	bindErr, configFileErr, unmarshalErr = nil, nil, nil

	var buf bytes.Buffer
	dumpConfigCmd.SetOut(&buf)
	dumpConfigCmd.SetArgs(nil)

	require.NoError(t, dumpConfigCmd.RunE(dumpConfigCmd, nil))

	var roundTripped cfg.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &roundTripped))
	assert.Equal(t, MountConfig, roundTripped)
}

// TestDumpConfigCmdSurfacesEarlierBindError verifies dump-config refuses
// to print a config that failed to bind rather than dumping a partial
// or zero-value tree.
func TestDumpConfigCmdSurfacesEarlierBindError(t *testing.T) {
	origBindErr := bindErr
	defer func() { bindErr = origBindErr }()

	bindErr = assert.AnError
	err := dumpConfigCmd.RunE(dumpConfigCmd, nil)
	require.Error(t, err)
	assert.Equal(t, assert.AnError, err)
}
