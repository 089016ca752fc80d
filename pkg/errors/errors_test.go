// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package errors_test

import (
	stderrors "errors"
	"testing"

	glypherr "github.com/glyph-dev/glyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := glypherr.New(
		glypherr.CodeConfigValidateInvalidValue,
		"invalid model configuration",
		glypherr.FieldProvider("openai"),
		glypherr.Field("model", "gpt-4.1"),
	)

	require.Error(t, err)
	assert.Equal(t, glypherr.CodeConfigValidateInvalidValue, glypherr.CodeOf(err))
	assert.True(t, glypherr.HasCode(err, glypherr.CodeConfigValidateInvalidValue))

	fields := glypherr.FieldsOf(err)
	assert.Equal(t, "openai", fields["provider"])
	assert.Equal(t, "gpt-4.1", fields["model"])
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := glypherr.Errorf(glypherr.CodeToolHandlerFailure, "running tool %s: exit %d", "exec_command", 2)
	require.Error(t, err)
	assert.Equal(t, glypherr.CodeToolHandlerFailure, glypherr.CodeOf(err))
	assert.Contains(t, err.Error(), "running tool exec_command: exit 2")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("connection refused")
	err := glypherr.Errorf(glypherr.CodeProviderNetworkFailure, "calling provider: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, glypherr.CodeProviderNetworkFailure, glypherr.CodeOf(err))
}

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("no such tool")
	err := glypherr.Wrap(
		root,
		glypherr.CodeToolUnknown,
		"dispatching call",
		glypherr.FieldTool("delete_everything"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, glypherr.CodeToolUnknown, glypherr.CodeOf(err))
	assert.True(t, glypherr.IsNotFound(err))
	assert.Equal(t, "delete_everything", glypherr.FieldsOf(err)["tool"])
}

func TestWrapKeepsCauseCode(t *testing.T) {
	cause := glypherr.New(glypherr.CodeToolUnknown, "no such tool: grep_files")
	err := glypherr.Wrap(cause, glypherr.CodeSubagentProfileInvalid,
		"binding profile", glypherr.FieldProfile("reviewer"))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, glypherr.CodeToolUnknown, glypherr.CodeOf(err),
		"the deepest code in the chain is the classification")
	assert.True(t, glypherr.HasCode(err, glypherr.CodeToolUnknown))
	assert.False(t, glypherr.HasCode(err, glypherr.CodeSubagentProfileInvalid))
	assert.Contains(t, err.Error(), "binding profile")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, glypherr.Wrap(nil, glypherr.CodeAgentLoopFailure, "ignored"))
	assert.NoError(t, glypherr.Wrapf(nil, glypherr.CodeAgentLoopFailure, "ignored %s", "arg"))
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := glypherr.New(glypherr.CodeToolSandboxDenied, "path escapes workspace")
	withCtx := glypherr.With(base, glypherr.FieldPath("/etc/passwd"))

	require.Error(t, withCtx)
	assert.Equal(t, glypherr.CodeToolSandboxDenied, glypherr.CodeOf(withCtx))
	assert.Equal(t, "/etc/passwd", glypherr.FieldsOf(withCtx)["path"])
}

func TestCodeOfNonOopsError(t *testing.T) {
	assert.Equal(t, glypherr.Code(""), glypherr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, glypherr.Code(""), glypherr.CodeOf(nil))
}

func TestRetryablePredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"rate limit", glypherr.New(glypherr.CodeProviderRateLimited, "429"), true},
		{"network", glypherr.New(glypherr.CodeProviderNetworkFailure, "conn reset"), true},
		{"auth", glypherr.New(glypherr.CodeProviderAuthFailure, "401"), false},
		{"invalid response", glypherr.New(glypherr.CodeProviderResponseInvalid, "empty choices"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, glypherr.IsRetryable(tt.err))
		})
	}
}

func TestReasonPredicates(t *testing.T) {
	assert.True(t, glypherr.IsDenied(glypherr.New(glypherr.CodeToolApprovalDenied, "denied by user")))
	assert.True(t, glypherr.IsTimeout(glypherr.New(glypherr.CodeToolTimeout, "deadline exceeded")))
	assert.True(t, glypherr.IsCancelled(glypherr.New(glypherr.CodeAgentCancelled, "ctx done")))
	assert.True(t, glypherr.IsInvalidInput(glypherr.New(glypherr.CodeToolSchemaInvalid, "bad args")))
	assert.False(t, glypherr.IsDenied(nil))
}

func TestJoinAggregatesErrors(t *testing.T) {
	e1 := stderrors.New("first")
	e2 := stderrors.New("second")
	joined := glypherr.Join(e1, e2)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, e1)
	assert.ErrorIs(t, joined, e2)
}
