// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// SandboxMode is the permission tier governing mutating tool operations.
// Session-scoped: set once, read by the gate on every mutating call.
type SandboxMode string

const (
	SandboxReadOnly       SandboxMode = "read-only"
	SandboxWorkspaceWrite SandboxMode = "workspace-write"
	SandboxFullAccess     SandboxMode = "danger-full-access"
)

// ParseSandboxMode validates a configured sandbox mode string.
func ParseSandboxMode(s string) (SandboxMode, error) {
	switch SandboxMode(s) {
	case SandboxReadOnly, SandboxWorkspaceWrite, SandboxFullAccess:
		return SandboxMode(s), nil
	default:
		return "", glypherr.Errorf(glypherr.CodeConfigValidateInvalidValue,
			"sandbox_mode must be one of read-only, workspace-write, danger-full-access; got %q", s)
	}
}

// ApprovalPolicy is the rule set governing when a human confirmation is
// required before a mutating tool executes.
type ApprovalPolicy string

const (
	ApprovalNever     ApprovalPolicy = "never"
	ApprovalAlways    ApprovalPolicy = "always"
	ApprovalOnRequest ApprovalPolicy = "on-request"
)

// ParseApprovalPolicy validates a configured approval policy string.
func ParseApprovalPolicy(s string) (ApprovalPolicy, error) {
	switch ApprovalPolicy(s) {
	case ApprovalNever, ApprovalAlways, ApprovalOnRequest:
		return ApprovalPolicy(s), nil
	default:
		return "", glypherr.Errorf(glypherr.CodeConfigValidateInvalidValue,
			"approval_policy must be one of never, always, on-request; got %q", s)
	}
}
