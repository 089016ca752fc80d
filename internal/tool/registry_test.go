// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool_test

import (
	"context"
	"testing"

	"github.com/glyph-dev/glyph/internal/tool"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(_ context.Context, _ map[string]any) (string, error) {
	return "ok", nil
}

func specNamed(name string) tool.Spec {
	return tool.Spec{Name: name, Description: name, Handler: nopHandler}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(specNamed("read_file")))

	spec, ok := reg.Get("read_file")
	require.True(t, ok)
	assert.Equal(t, "read_file", spec.Name)

	_, ok = reg.Get("absent")
	assert.False(t, ok)
}

func TestRegistry_NameCollision(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(specNamed("read_file")))

	err := reg.Register(specNamed("read_file"))
	require.Error(t, err)
	assert.True(t, glypherr.HasCode(err, glypherr.CodeToolNameConflict))
}

func TestRegistry_RejectsIncompleteSpec(t *testing.T) {
	reg := tool.NewRegistry()
	assert.Error(t, reg.Register(tool.Spec{Handler: nopHandler}))
	assert.Error(t, reg.Register(tool.Spec{Name: "no_handler"}))
}

func TestRegistry_DefinitionsKeepRegistrationOrder(t *testing.T) {
	reg := tool.NewRegistry()
	for _, name := range []string{"list_files", "read_file", "grep_files"} {
		require.NoError(t, reg.Register(specNamed(name)))
	}

	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "list_files", defs[0].Name)
	assert.Equal(t, "read_file", defs[1].Name)
	assert.Equal(t, "grep_files", defs[2].Name)
}

func TestRegistry_ViewRestricts(t *testing.T) {
	reg := tool.NewRegistry()
	for _, name := range []string{"read_file", "grep_files", "write_file"} {
		require.NoError(t, reg.Register(specNamed(name)))
	}

	view, err := reg.View([]string{"read_file", "grep_files"})
	require.NoError(t, err)
	assert.Equal(t, []string{"read_file", "grep_files"}, view.Names())

	_, ok := view.Get("write_file")
	assert.False(t, ok, "view must not expose tools outside the allowed list")
}

func TestRegistry_ViewFailsAtBindingTime(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(specNamed("read_file")))
	require.NoError(t, reg.Register(specNamed("grep_files")))

	_, err := reg.View([]string{"read_file", "grep_files", "write_file"})
	require.Error(t, err)
	assert.True(t, glypherr.HasCode(err, glypherr.CodeToolUnknown))
	assert.Contains(t, err.Error(), "write_file")
}
