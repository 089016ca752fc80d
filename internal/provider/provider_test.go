// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyph-dev/glyph/internal/provider"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

func TestArgumentsMap(t *testing.T) {
	call := provider.ToolCall{Arguments: `{"path":"main.go","count":2}`}
	args, err := call.ArgumentsMap()
	require.NoError(t, err)
	assert.Equal(t, "main.go", args["path"])
	assert.Equal(t, float64(2), args["count"])
}

func TestArgumentsMapEmptyDefaultsToObject(t *testing.T) {
	args, err := provider.ToolCall{}.ArgumentsMap()
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestArgumentsMapMalformed(t *testing.T) {
	_, err := provider.ToolCall{Arguments: `{"path":`}.ArgumentsMap()
	assert.Error(t, err)
}

func TestToolResultMessage(t *testing.T) {
	res := provider.ToolResult{
		ToolCallID: "call_1",
		ToolName:   "read_file",
		Output:     "contents",
		IsError:    true,
	}

	msg := res.Message()
	assert.Equal(t, provider.RoleTool, msg.Role)
	assert.Equal(t, "call_1", msg.ToolCallID)
	assert.Equal(t, "read_file", msg.ToolName)
	assert.Equal(t, "contents", msg.Content)
	assert.True(t, msg.IsError)
}

func TestCodeForStatus(t *testing.T) {
	cases := []struct {
		status int
		code   glypherr.Code
	}{
		{401, glypherr.CodeProviderAuthFailure},
		{403, glypherr.CodeProviderAuthFailure},
		{429, glypherr.CodeProviderRateLimited},
		{400, glypherr.CodeProviderRequestInvalid},
		{404, glypherr.CodeProviderRequestInvalid},
		{422, glypherr.CodeProviderRequestInvalid},
		{408, glypherr.CodeProviderNetworkFailure},
		{500, glypherr.CodeProviderNetworkFailure},
		{503, glypherr.CodeProviderNetworkFailure},
		{418, glypherr.CodeProviderNetworkFailure},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, provider.CodeForStatus(tc.status), "status %d", tc.status)
	}
}
