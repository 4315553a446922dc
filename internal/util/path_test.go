// Copyright 2023 Google Inc. All Rights Reserved.
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

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PathTest struct {
	suite.Suite
}

func TestPathSuite(t *testing.T) {
	suite.Run(t, new(PathTest))
}

func (ts *PathTest) TestResolveEmptyPath() {
	resolvedPath, err := GetResolvedPath("")

	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), "", resolvedPath)
}

func (ts *PathTest) TestResolveHomeDirTilde() {
	resolvedPath, err := GetResolvedPath("~")

	assert.NoError(ts.T(), err)
	homeDir, err := os.UserHomeDir()
	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), homeDir, resolvedPath)
}

func (ts *PathTest) TestResolvePathStartsWithTilde() {
	resolvedPath, err := GetResolvedPath("~/test.txt")

	assert.NoError(ts.T(), err)
	homeDir, err := os.UserHomeDir()
	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), filepath.Join(homeDir, "test.txt"), resolvedPath)
}

func (ts *PathTest) TestResolvePathStartsWithDot() {
	resolvedPath, err := GetResolvedPath("./test.txt")

	assert.NoError(ts.T(), err)
	currentWorkingDir, err := os.Getwd()
	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), filepath.Join(currentWorkingDir, "test.txt"), resolvedPath)
}

func (ts *PathTest) TestResolveRelativePath() {
	resolvedPath, err := GetResolvedPath("test.txt")

	assert.NoError(ts.T(), err)
	currentWorkingDir, err := os.Getwd()
	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), filepath.Join(currentWorkingDir, "test.txt"), resolvedPath)
}

func (ts *PathTest) TestResolveAbsolutePath() {
	resolvedPath, err := GetResolvedPath("/var/dir/test.txt")

	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), "/var/dir/test.txt", resolvedPath)
}
