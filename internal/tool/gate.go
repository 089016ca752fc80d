// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/workspace"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// ConfirmFunc asks for an explicit human confirmation before a mutating
// call. The preview is a truncated rendering of the call arguments.
type ConfirmFunc func(toolName, preview string) bool

// previewLimit caps the argument rendering shown in confirmation prompts.
const previewLimit = 600

// Gate runs every tool call through ordered stages: lookup, argument
// validation, sandbox, approval, then the handler under a timeout. Every
// failure becomes an is_error ToolResult so the model can self-correct;
// the gate never aborts the loop.
type Gate struct {
	registry  *Registry
	mode      SandboxMode
	policy    ApprovalPolicy
	workspace *workspace.Manager
	confirm   ConfirmFunc
	logger    *slog.Logger

	mu       sync.Mutex
	approved map[string]bool // tool names confirmed once under on-request
}

// GateConfig assembles a Gate. Confirm may be nil when the policy is
// never; with always or on-request a nil confirm denies every prompt.
type GateConfig struct {
	Registry  *Registry
	Mode      SandboxMode
	Policy    ApprovalPolicy
	Workspace *workspace.Manager
	Confirm   ConfirmFunc
	Logger    *slog.Logger
}

// NewGate builds a gate bound to one session's sandbox configuration.
func NewGate(cfg GateConfig) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		registry:  cfg.Registry,
		mode:      cfg.Mode,
		policy:    cfg.Policy,
		workspace: cfg.Workspace,
		confirm:   cfg.Confirm,
		logger:    logger,
		approved:  make(map[string]bool),
	}
}

// Registry returns the registry this gate dispatches into.
func (g *Gate) Registry() *Registry { return g.registry }

// Mode returns the session's sandbox mode.
func (g *Gate) Mode() SandboxMode { return g.mode }

// Execute runs one tool call to completion and always returns a
// ToolResult tagged with the call's id.
func (g *Gate) Execute(ctx context.Context, call provider.ToolCall) provider.ToolResult {
	refuse := func(err error) provider.ToolResult {
		g.logger.Debug("tool call refused",
			"tool", call.Name, "code", string(glypherr.CodeOf(err)), "reason", err.Error())
		return provider.ToolResult{
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Output:     err.Error(),
			IsError:    true,
		}
	}

	spec, ok := g.registry.Get(call.Name)
	if !ok {
		return refuse(glypherr.Errorf(glypherr.CodeToolUnknown, "unknown tool: %s", call.Name))
	}

	args, err := call.ArgumentsMap()
	if err != nil {
		return refuse(glypherr.Wrapf(err, glypherr.CodeToolSchemaInvalid, "invalid tool arguments JSON"))
	}

	if err := validateArgs(spec.Parameters, args); err != nil {
		return refuse(glypherr.Wrapf(err, glypherr.CodeToolSchemaInvalid, "invalid arguments for %s", call.Name))
	}

	if spec.Mutating {
		if g.mode == SandboxReadOnly {
			return refuse(glypherr.New(glypherr.CodeToolSandboxDenied,
				"blocked by sandbox policy: read-only (requires workspace-write or danger-full-access)",
				glypherr.FieldTool(call.Name)))
		}
		if g.mode == SandboxWorkspaceWrite {
			if err := g.checkPaths(spec, args); err != nil {
				return refuse(err)
			}
		}

		if err := g.checkApproval(spec, args); err != nil {
			return refuse(err)
		}
	}

	output, err := g.run(ctx, spec, args)
	if err != nil {
		return refuse(err)
	}

	return provider.ToolResult{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Output:     output,
	}
}

// checkPaths verifies every declared path argument stays inside the
// workspace root. Unset path arguments default to the root and pass.
func (g *Gate) checkPaths(spec Spec, args map[string]any) error {
	for _, name := range spec.PathArguments {
		raw, ok := args[name].(string)
		if !ok || raw == "" {
			continue
		}
		if _, err := g.workspace.Resolve(raw); err != nil {
			return glypherr.Errorf(glypherr.CodeToolSandboxDenied,
				"blocked by sandbox policy: path %q escapes the workspace root", raw)
		}
	}
	return nil
}

// checkApproval applies the session approval policy to a mutating call. The
// mutex stays held across the prompt so parallel calls to the same tool in
// one turn observe the first confirmation instead of each prompting.
func (g *Gate) checkApproval(spec Spec, args map[string]any) error {
	if g.policy == ApprovalNever {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.policy {
	case ApprovalAlways:
		if !g.prompt(spec.Name, args) {
			return glypherr.New(glypherr.CodeToolApprovalDenied, "denied by user",
				glypherr.FieldTool(spec.Name))
		}
		return nil
	case ApprovalOnRequest:
		if g.approved[spec.Name] && !spec.AlwaysConfirm {
			return nil
		}
		if !g.prompt(spec.Name, args) {
			return glypherr.New(glypherr.CodeToolApprovalDenied, "denied by user",
				glypherr.FieldTool(spec.Name))
		}
		g.approved[spec.Name] = true
		return nil
	default:
		return glypherr.Errorf(glypherr.CodeToolApprovalDenied, "unknown approval policy %q", g.policy)
	}
}

func (g *Gate) prompt(name string, args map[string]any) bool {
	if g.confirm == nil {
		return false
	}
	preview, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		preview = []byte("{}")
	}
	text := string(preview)
	if len(text) > previewLimit {
		text = text[:previewLimit]
	}
	return g.confirm(name, text)
}

// run invokes the handler under the spec's timeout. The handler goroutine
// receives a cancelled context on timeout so spawned processes get
// released, but the gate stops waiting once the deadline passes.
func (g *Gate) run(ctx context.Context, spec Spec, args map[string]any) (string, error) {
	timeout := spec.timeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		output, err := spec.Handler(ctx, args)
		done <- outcome{output: output, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", glypherr.Wrapf(res.err, glypherr.CodeToolHandlerFailure, "tool execution failed")
		}
		g.logger.Debug("tool call completed", "tool", spec.Name, "duration", time.Since(start))
		return res.output, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return "", glypherr.Errorf(glypherr.CodeToolTimeout, "tool timed out after %s", timeout)
		}
		return "", glypherr.Wrapf(ctx.Err(), glypherr.CodeAgentCancelled, "tool cancelled")
	}
}
