// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package provider defines the canonical message and tool-call
// representation shared by all model protocol adapters, and the Adapter
// contract each provider variant implements.
package provider

import (
	"context"
	"encoding/json"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation transcript.
//
// Invariants: ToolCalls appear only on assistant messages; ToolCallID is set
// only on tool messages and must reference a ToolCall emitted by the
// immediately preceding assistant message. Thinking carries model reasoning
// text and is never part of Content.
type Message struct {
	Role       Role
	Content    string
	Thinking   string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
	IsError    bool
}

// ToolCall is a structured tool invocation emitted by the model.
// Arguments holds the provider-normalized JSON object encoding; it may be
// syntactically invalid when the model produced malformed output — the
// adapter passes it through so schema validation can report it downstream.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ArgumentsMap decodes Arguments into the canonical keyed map.
func (c ToolCall) ArgumentsMap() (map[string]any, error) {
	raw := c.Arguments
	if raw == "" {
		raw = "{}"
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ToolResult is the outcome of exactly one sandbox-gate invocation.
type ToolResult struct {
	ToolCallID string
	ToolName   string
	Output     string
	IsError    bool
}

// Message converts the result into its transcript form.
func (r ToolResult) Message() Message {
	return Message{
		Role:       RoleTool,
		Content:    r.Output,
		ToolCallID: r.ToolCallID,
		ToolName:   r.ToolName,
		IsError:    r.IsError,
	}
}

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Adapter is the provider-agnostic model protocol contract. Send translates
// the canonical history and tool definitions into one provider's wire shape,
// performs a single completion call, and returns the next assistant message.
// Failures carry a provider error code: auth, rate_limit, network, or
// invalid_response (see pkg/errors).
type Adapter interface {
	Name() string
	Send(ctx context.Context, history []Message, tools []ToolDefinition) (*Message, error)
}
