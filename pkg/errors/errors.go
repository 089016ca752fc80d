// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeProviderAuthFailure     Code = "provider.auth.failure"
	CodeProviderRateLimited     Code = "provider.rate_limit.exceeded"
	CodeProviderNetworkFailure  Code = "provider.network.failure"
	CodeProviderResponseInvalid Code = "provider.response.invalid"
	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderNotFound        Code = "provider.registry.not_found"

	CodeToolUnknown        Code = "tool.lookup.not_found"
	CodeToolNameConflict   Code = "tool.register.conflict"
	CodeToolSchemaInvalid  Code = "tool.arguments.invalid"
	CodeToolSandboxDenied  Code = "tool.sandbox.denied"
	CodeToolApprovalDenied Code = "tool.approval.denied"
	CodeToolTimeout        Code = "tool.execute.timeout"
	CodeToolHandlerFailure Code = "tool.execute.failure"

	CodeWorkspacePathEscape  Code = "workspace.path.escape"
	CodeWorkspacePathInvalid Code = "workspace.path.invalid"
	CodeWorkspaceOpenFailure Code = "workspace.open.failure"

	CodeAgentLoopInvalidInput  Code = "agent.loop.invalid_input"
	CodeAgentLoopFailure       Code = "agent.loop.failure"
	CodeAgentCancelled         Code = "agent.loop.cancelled"
	CodeAgentSkillParseInvalid Code = "agent.skill.parse.invalid"

	CodeSubagentProfileInvalid Code = "subagent.profile.invalid"
	CodeSubagentNotFound       Code = "subagent.profile.not_found"

	CodeMCPServerStartFailure Code = "mcp.server.start.failure"
	CodeMCPProtocolInvalid    Code = "mcp.protocol.invalid"
	CodeMCPCallFailure        Code = "mcp.call.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldTool(value string) Attr {
	return Field("tool", value)
}

func FieldProfile(value string) Attr {
	return Field("profile", value)
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrap adds a message and fields to an error. The code applies only when
// the cause carries none: CodeOf resolves the deepest code in the chain, so
// wrapping never reclassifies an already-coded error.
func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// Wrapf is Wrap with a format string. The same code resolution applies.
func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeAgentLoopFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsRetryable reports whether the error represents a transient provider
// condition that is safe to retry with backoff. Auth failures and invalid
// responses are never retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeProviderRateLimited, CodeProviderNetworkFailure:
		return true
	default:
		return false
	}
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsDenied(err error) bool {
	return reason(CodeOf(err)) == "denied"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsCancelled(err error) bool {
	return reason(CodeOf(err)) == "cancelled"
}

func Join(errs ...error) error {
	return oops.Code(CodeAgentLoopFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
