// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package anthropic_test

import (
	"testing"

	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/provider/anthropic"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface satisfaction check.
var _ provider.Adapter = (*anthropic.Adapter)(nil)

func TestAdapter_Name(t *testing.T) {
	a := mustNewAdapter(t)
	assert.Equal(t, "anthropic", a.Name())
}

func TestAdapter_MissingAPIKey(t *testing.T) {
	_, err := anthropic.New(anthropic.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, glypherr.IsInvalidInput(err), "missing API key should be CodeProviderRequestInvalid")
	assert.True(t, glypherr.HasCode(err, glypherr.CodeProviderRequestInvalid))
}

func TestConvertMessages_SystemCollapsesToTopLevel(t *testing.T) {
	msgs, system, err := anthropic.ConvertMessages([]provider.Message{
		{Role: provider.RoleSystem, Content: "You are terse."},
		{Role: provider.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You are terse.", system)
	require.Len(t, msgs, 1, "system messages must not appear in the message list")
}

func TestConvertMessages_ToolRoundTrip(t *testing.T) {
	history := []provider.Message{
		{Role: provider.RoleUser, Content: "list the files"},
		{
			Role:    provider.RoleAssistant,
			Content: "Listing now.",
			ToolCalls: []provider.ToolCall{
				{ID: "toolu_01", Name: "list_files", Arguments: `{"path":"."}`},
				{ID: "toolu_02", Name: "read_file", Arguments: `{"path":"go.mod"}`},
			},
		},
		{Role: provider.RoleTool, ToolCallID: "toolu_01", ToolName: "list_files", Content: "go.mod\nmain.go"},
		{Role: provider.RoleTool, ToolCallID: "toolu_02", ToolName: "read_file", Content: "module demo"},
	}

	msgs, _, err := anthropic.ConvertMessages(history)
	require.NoError(t, err)
	// user, assistant, and one coalesced user turn carrying both tool results
	require.Len(t, msgs, 3)

	assistant := msgs[1]
	require.Len(t, assistant.Content, 3, "text block plus two tool_use blocks")
	use1 := assistant.Content[1].OfToolUse
	require.NotNil(t, use1)
	assert.Equal(t, "toolu_01", use1.ID)
	assert.Equal(t, "list_files", use1.Name)

	results := msgs[2]
	require.Len(t, results.Content, 2, "consecutive tool results coalesce into one user turn")
	res1 := results.Content[0].OfToolResult
	require.NotNil(t, res1)
	assert.Equal(t, "toolu_01", res1.ToolUseID)
}

func TestConvertMessages_ErrorResultFlagged(t *testing.T) {
	msgs, _, err := anthropic.ConvertMessages([]provider.Message{
		{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{{ID: "t1", Name: "exec_command", Arguments: `{}`}}},
		{Role: provider.RoleTool, ToolCallID: "t1", Content: "denied", IsError: true},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	res := msgs[1].Content[0].OfToolResult
	require.NotNil(t, res)
	assert.True(t, res.IsError.Value)
}

func TestConvertMessages_UnknownRole(t *testing.T) {
	_, _, err := anthropic.ConvertMessages([]provider.Message{{Role: "critic"}})
	require.Error(t, err)
	assert.True(t, glypherr.HasCode(err, glypherr.CodeProviderRequestInvalid))
}

func TestDecodeArguments_MalformedJSONPreserved(t *testing.T) {
	m := anthropic.DecodeArguments(`{"path": "unterminated`)
	assert.Equal(t, `{"path": "unterminated`, m["_raw_arguments"])

	m = anthropic.DecodeArguments(`{"path":"."}`)
	assert.Equal(t, ".", m["path"])

	m = anthropic.DecodeArguments("")
	assert.Empty(t, m)
}

func TestBuildParams_ToolsAndDefaults(t *testing.T) {
	cfg := anthropic.Config{APIKey: "k", Model: "claude-sonnet-4-5"}
	params, err := anthropic.BuildParams(cfg, []provider.Message{
		{Role: provider.RoleUser, Content: "hi"},
	}, []provider.ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read a file from the workspace.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string"},
				},
				"required": []any{"path"},
			},
		},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4096, params.MaxTokens, "max tokens should default when unset")
	require.Len(t, params.Tools, 1)
	tool := params.Tools[0].OfTool
	require.NotNil(t, tool)
	assert.Equal(t, "read_file", tool.Name)
	assert.Equal(t, []string{"path"}, tool.InputSchema.Required)
}

func TestExtractSchema_MissingKeys(t *testing.T) {
	schema := anthropic.ExtractSchema(map[string]any{"type": "object"})
	assert.Nil(t, schema.Properties)
	assert.Empty(t, schema.Required)
}

func mustNewAdapter(t *testing.T) *anthropic.Adapter {
	t.Helper()
	a, err := anthropic.New(anthropic.Config{APIKey: "test-key-not-real"})
	require.NoError(t, err)
	return a
}
