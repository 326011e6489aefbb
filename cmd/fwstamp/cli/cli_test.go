// Copyright 2026 The fwstamp Authors
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

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whywaita/fwstamp/internal/build"
	"github.com/whywaita/fwstamp/internal/config"
	"github.com/whywaita/fwstamp/internal/revision"
	"gopkg.in/yaml.v3"
)

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fwstamp "+build.Version)
	assert.Contains(t, stdout, "("+build.Commit+")")
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fwstamp "+build.Version)
}

func TestRootShowsHelp(t *testing.T) {
	stdout, _, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "build_flags = !fwstamp stamp")
	assert.Contains(t, stdout, "stamp")
	assert.Contains(t, stdout, "doctor")
}

func TestInitCreatesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".fwstamp.yaml")

	stdout, _, err := runCLI(t, "--config", configPath, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created "+configPath)
	assert.Contains(t, stdout, "build_flags = !fwstamp stamp")

	data, readErr := os.ReadFile(configPath)
	require.NoError(t, readErr)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, "FW_VERSION", parsed["symbol"])
	assert.Equal(t, "unknown", parsed["fallback"])
}

func TestInitRefusesOverwrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".fwstamp.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("symbol: KEEP\n"), 0o644))

	_, _, err := runCLI(t, "--config", configPath, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, readErr := os.ReadFile(configPath)
	require.NoError(t, readErr)
	assert.Equal(t, "symbol: KEEP\n", string(data))
}

func TestInitForceOverwrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".fwstamp.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("symbol: KEEP\n"), 0o644))

	_, _, err := runCLI(t, "--config", configPath, "init", "--force")
	require.NoError(t, err)

	data, readErr := os.ReadFile(configPath)
	require.NoError(t, readErr)
	assert.Equal(t, config.Template, string(data))
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := runCLI(t, "stamp-all")
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}

type exitCodeErr struct{ code int }

func (e exitCodeErr) Error() string { return fmt.Sprintf("exit %d", e.code) }
func (e exitCodeErr) ExitCode() int { return e.code }

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", exitCodeErr{code: 3})))
	assert.Equal(t, 1, ExitCode(exitCodeErr{code: 0}))
}

// gitCall records one invocation of the fake git runner.
type gitCall struct {
	dir  string
	args string
}

// fakeGit answers git invocations keyed by their joined arguments. Unknown
// invocations fail the way git does outside a repository.
type fakeGit struct {
	outputs map[string]string
	calls   []gitCall
}

func (f *fakeGit) run(_ context.Context, dir, _ string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, gitCall{dir: dir, args: key})
	if out, ok := f.outputs[key]; ok {
		return []byte(out), nil
	}
	return nil, fmt.Errorf("%w: exit status 128: fatal: not a git repository", revision.ErrCommandFailed)
}

func repoGit() *fakeGit {
	return &fakeGit{outputs: map[string]string{
		"rev-parse --short HEAD":                 "1a2b3c4\n",
		"rev-parse --short=10 HEAD":              "1a2b3c4d5e\n",
		"rev-parse --is-inside-work-tree":        "true\n",
		"status --porcelain --untracked-files=no": " M src/main.cpp\n",
	}}
}

func noRepoGit() *fakeGit {
	return &fakeGit{outputs: map[string]string{}}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLIWithDeps(t, nil, args...)
}

func runCLIWithDeps(t *testing.T, deps *gitDeps, args ...string) (string, string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := newRootCmdWithDeps(context.Background(), stdout, stderr, deps)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

// isolatedConfig returns a --config path that does not exist.
func isolatedConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.yaml")
}
