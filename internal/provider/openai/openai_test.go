// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package openai_test

import (
	"testing"

	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/provider/openai"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface satisfaction check.
var _ provider.Adapter = (*openai.Adapter)(nil)

func TestAdapter_Name(t *testing.T) {
	a := mustNewAdapter(t)
	assert.Equal(t, "openai", a.Name())
}

func TestAdapter_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, glypherr.HasCode(err, glypherr.CodeProviderRequestInvalid))
}

func TestConvertMessages_RolesMapDirectly(t *testing.T) {
	msgs, err := openai.ConvertMessages([]provider.Message{
		{Role: provider.RoleSystem, Content: "You are terse."},
		{Role: provider.RoleUser, Content: "hi"},
		{Role: provider.RoleAssistant, Content: "hello"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[0].OfSystem)
	require.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
}

func TestConvertMessages_ToolResultUsesToolRole(t *testing.T) {
	msgs, err := openai.ConvertMessages([]provider.Message{
		{
			Role: provider.RoleAssistant,
			ToolCalls: []provider.ToolCall{
				{ID: "call_1", Name: "grep_files", Arguments: `{"pattern":"TODO"}`},
			},
		},
		{Role: provider.RoleTool, ToolCallID: "call_1", ToolName: "grep_files", Content: "main.go:12"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assistant := msgs[0].OfAssistant
	require.NotNil(t, assistant)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "grep_files", assistant.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"pattern":"TODO"}`, assistant.ToolCalls[0].Function.Arguments)

	toolMsg := msgs[1].OfTool
	require.NotNil(t, toolMsg)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
}

func TestConvertMessages_UnknownRole(t *testing.T) {
	_, err := openai.ConvertMessages([]provider.Message{{Role: "narrator"}})
	require.Error(t, err)
	assert.True(t, glypherr.HasCode(err, glypherr.CodeProviderRequestInvalid))
}

func TestAssistantParam_EmptyArgumentsDefaulted(t *testing.T) {
	p := openai.AssistantParam(provider.Message{
		Role:      provider.RoleAssistant,
		ToolCalls: []provider.ToolCall{{ID: "call_2", Name: "update_plan"}},
	})
	require.NotNil(t, p.OfAssistant)
	assert.Equal(t, "{}", p.OfAssistant.ToolCalls[0].Function.Arguments)
}

func TestBuildParams_ToolsAndOptions(t *testing.T) {
	temp := 0.2
	cfg := openai.Config{APIKey: "k", Model: "gpt-4.1", MaxTokens: 2048, Temperature: &temp}
	params, err := openai.BuildParams(cfg, []provider.Message{
		{Role: provider.RoleUser, Content: "hi"},
	}, []provider.ToolDefinition{
		{
			Name:        "exec_command",
			Description: "Run a shell command.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"command": map[string]any{"type": "string"}},
				"required":   []any{"command"},
			},
		},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2048, params.MaxCompletionTokens.Value)
	assert.InDelta(t, 0.2, params.Temperature.Value, 1e-9)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "exec_command", params.Tools[0].Function.Name)
}

func mustNewAdapter(t *testing.T) *openai.Adapter {
	t.Helper()
	a, err := openai.New(openai.Config{APIKey: "test-key-not-real"})
	require.NoError(t, err)
	return a
}
