// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "tools")
	assert.Contains(t, names, "profiles")
	assert.Contains(t, names, "version")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "glyph dev")
}

func TestToolsCommandListsBuiltins(t *testing.T) {
	out, _, err := execute(t, "tools", "-w", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, out, "read_file")
	assert.Contains(t, out, "write_file")
	assert.Contains(t, out, "exec_command")
	assert.Contains(t, out, "update_plan")
	assert.Contains(t, out, "mutating")
}

func TestProfilesCommandListsDefaults(t *testing.T) {
	out, _, err := execute(t, "profiles", "-w", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, out, "general")
	assert.Contains(t, out, "reviewer")
	assert.Contains(t, out, "researcher")
}

func TestRunCommandRequiresPrompt(t *testing.T) {
	root := NewRootCmd()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs([]string{"run", "-w", t.TempDir()})

	err := root.Execute()
	assert.Error(t, err)
}

func TestLoadConfigFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "glyph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workspace: /from/file\n"), 0o644))

	wsDir := t.TempDir()
	root := NewRootCmd()
	root.SetArgs([]string{"tools", "-c", cfgPath, "-w", wsDir})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "read_file")
}
