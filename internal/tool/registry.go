// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	"sort"
	"sync"

	"github.com/glyph-dev/glyph/internal/provider"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Registry maps tool names to specs. Populated at startup by independent
// loaders (built-ins, MCP bridge) and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a spec. A name collision is a configuration error, not a
// silent overwrite.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return glypherr.New(glypherr.CodeToolSchemaInvalid, "tool spec has no name")
	}
	if spec.Handler == nil {
		return glypherr.New(glypherr.CodeToolSchemaInvalid,
			"tool spec has no handler", glypherr.FieldTool(spec.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[spec.Name]; exists {
		return glypherr.New(glypherr.CodeToolNameConflict,
			"tool name already registered", glypherr.FieldTool(spec.Name))
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Get looks up a spec by name.
func (r *Registry) Get(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions renders every spec for offering to the model, in
// registration order.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name].Definition())
	}
	return out
}

// View builds a restricted registry exposing only the allowed names.
// Referencing a name that is not registered is a binding-time error; the
// caller learns about a misconfigured profile before any delegation runs.
func (r *Registry) View(allowed []string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	view := NewRegistry()
	for _, name := range allowed {
		spec, ok := r.specs[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		// Registration order inside the view follows the allowed list.
		view.specs[name] = spec
		view.order = append(view.order, name)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, glypherr.Errorf(glypherr.CodeToolUnknown,
			"restricted view references unregistered tool(s): %v", missing)
	}
	return view, nil
}
