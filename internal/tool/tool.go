// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package tool holds the tool registry and the sandbox/approval gate every
// tool call passes through before its handler runs.
package tool

import (
	"context"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/glyph-dev/glyph/internal/provider"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// DefaultTimeout bounds handler execution when a spec does not set its own.
const DefaultTimeout = 120 * time.Second

// Handler executes one validated tool call and returns output text for the
// model. A returned error becomes an is_error ToolResult, never a loop abort.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Spec describes one registered tool. Registered once at startup or
// bridge-load time and immutable thereafter.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
	Mutating    bool
	Timeout     time.Duration

	// PathArguments names the arguments holding workspace paths. The gate
	// containment-checks these under workspace-write before the handler runs.
	PathArguments []string

	// AlwaysConfirm forces a confirmation prompt on every call even under
	// the on-request policy's first-use rule.
	AlwaysConfirm bool

	Handler Handler
}

// Definition renders the spec in the shape adapters offer to the model.
func (s Spec) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        s.Name,
		Description: s.Description,
		InputSchema: s.Parameters,
	}
}

// timeout returns the effective handler deadline.
func (s Spec) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

// DecodeArgs decodes a validated argument map into a typed request struct.
// Weak typing tolerates JSON's float64 numbers landing in int fields.
func DecodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return glypherr.Wrap(err, glypherr.CodeToolSchemaInvalid, "building argument decoder")
	}
	if err := decoder.Decode(args); err != nil {
		return glypherr.Wrap(err, glypherr.CodeToolSchemaInvalid, "decoding tool arguments")
	}
	return nil
}
