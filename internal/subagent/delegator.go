// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glyph-dev/glyph/internal/agent"
	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/tool"
	"github.com/glyph-dev/glyph/internal/workspace"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// DelegateToolName is registered only on the parent registry. Delegate
// registries never receive it, so delegation cannot nest.
const DelegateToolName = "delegate_task"

// defaultDelegateSteps caps a delegate run when neither the profile nor the
// delegator config says otherwise.
const defaultDelegateSteps = 8

// Config assembles a Delegator.
type Config struct {
	Adapter    provider.Adapter
	Catalog    *Catalog
	Parent     *tool.Registry
	Workspace  *workspace.Manager
	BasePrompt string
	MaxSteps   int
	Logger     *slog.Logger
	Callbacks  *agent.Callbacks
}

// Delegator runs delegated tasks on a fresh state with a restricted,
// read-only tool runtime.
type Delegator struct {
	adapter    provider.Adapter
	catalog    *Catalog
	parent     *tool.Registry
	workspace  *workspace.Manager
	basePrompt string
	maxSteps   int
	logger     *slog.Logger
	callbacks  *agent.Callbacks
}

// NewDelegator validates dependencies and builds a delegator.
func NewDelegator(cfg Config) (*Delegator, error) {
	if cfg.Adapter == nil {
		return nil, glypherr.New(glypherr.CodeSubagentProfileInvalid, "subagent: adapter is required")
	}
	if cfg.Catalog == nil {
		return nil, glypherr.New(glypherr.CodeSubagentProfileInvalid, "subagent: catalog is required")
	}
	if cfg.Parent == nil {
		return nil, glypherr.New(glypherr.CodeSubagentProfileInvalid, "subagent: parent registry is required")
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultDelegateSteps
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Delegator{
		adapter:    cfg.Adapter,
		catalog:    cfg.Catalog,
		parent:     cfg.Parent,
		workspace:  cfg.Workspace,
		basePrompt: cfg.BasePrompt,
		maxSteps:   maxSteps,
		logger:     logger,
		callbacks:  cfg.Callbacks,
	}, nil
}

// Delegate runs one task under the named profile and returns the delegate's
// final answer. Tool failures inside the delegate surface as transcript
// entries the delegate can react to; only profile lookup, empty tasks, and
// provider failures return an error.
func (d *Delegator) Delegate(ctx context.Context, profileName, task string) (string, error) {
	profile, err := d.catalog.Get(profileName)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(task) == "" {
		return "", glypherr.New(glypherr.CodeSubagentProfileInvalid,
			"subagent: task cannot be empty", glypherr.FieldProfile(profile.Name))
	}

	view, err := d.registryFor(profile)
	if err != nil {
		return "", err
	}

	mode := tool.SandboxReadOnly
	if profile.Sandbox != "" {
		mode, err = tool.ParseSandboxMode(profile.Sandbox)
		if err != nil {
			return "", err
		}
	}

	gate := tool.NewGate(tool.GateConfig{
		Registry:  view,
		Mode:      mode,
		Policy:    tool.ApprovalNever,
		Workspace: d.workspace,
		Logger:    d.logger,
	})

	maxSteps := profile.MaxSteps
	if maxSteps <= 0 {
		maxSteps = d.maxSteps
	}
	loop, err := agent.NewLoop(agent.Config{
		Adapter:   d.adapter,
		Gate:      gate,
		MaxSteps:  maxSteps,
		Logger:    d.logger,
		Callbacks: d.callbacks,
	})
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("%s\n\n# Subagent profile: %s\n%s\n",
		d.basePrompt, profile.Name, profile.Prompt)
	state := agent.NewState(prompt)

	d.logger.Info("delegating task", "profile", profile.Name, "max_steps", maxSteps, "sandbox", string(mode))
	result, err := loop.Run(ctx, state, task)
	if err != nil {
		return "", err
	}

	switch result.Reason {
	case agent.ReasonDone, agent.ReasonMaxSteps:
		return result.Answer, nil
	case agent.ReasonCancelled:
		return "", glypherr.New(glypherr.CodeAgentCancelled,
			"subagent: delegation cancelled", glypherr.FieldProfile(profile.Name))
	default:
		return "", glypherr.New(glypherr.CodeAgentLoopFailure,
			"subagent: delegation failed", glypherr.FieldProfile(profile.Name))
	}
}

// registryFor builds the delegate's restricted tool view. Explicit
// allow-lists are honored as validated at catalog construction; otherwise
// every non-mutating parent tool is exposed. The delegation and plan tools
// are excluded either way.
func (d *Delegator) registryFor(profile Profile) (*tool.Registry, error) {
	allowed := profile.AllowedTools
	if len(allowed) == 0 {
		for _, name := range d.parent.Names() {
			spec, ok := d.parent.Get(name)
			if !ok || spec.Mutating {
				continue
			}
			allowed = append(allowed, name)
		}
	}

	filtered := make([]string, 0, len(allowed))
	for _, name := range allowed {
		if name == DelegateToolName || name == "update_plan" {
			continue
		}
		filtered = append(filtered, name)
	}
	return d.parent.View(filtered)
}

// Tool returns the delegate_task spec for the parent registry. Delegation
// failures come back through the gate as error tool results, so the model
// can recover; they never abort the parent loop.
func (d *Delegator) Tool() tool.Spec {
	profiles := d.catalog.List()
	names := make([]string, 0, len(profiles))
	var descriptions strings.Builder
	for _, profile := range profiles {
		names = append(names, profile.Name)
		fmt.Fprintf(&descriptions, "- %s: %s\n", profile.Name, profile.Description)
	}

	enum := make([]any, 0, len(names))
	for _, name := range names {
		enum = append(enum, name)
	}

	return tool.Spec{
		Name: DelegateToolName,
		Description: "Delegate a focused sub-task to an isolated helper agent with read-only tools. " +
			"Returns the helper's final report. Available profiles:\n" + descriptions.String(),
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{
					"type":        "string",
					"description": "Complete, self-contained description of the sub-task.",
				},
				"profile": map[string]any{
					"type":        "string",
					"description": "Delegate profile to use.",
					"enum":        enum,
				},
			},
			"required":             []any{"task"},
			"additionalProperties": false,
		},
		// A delegate run spans several model calls; the default handler
		// deadline is far too tight for that.
		Timeout: 15 * time.Minute,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			task, _ := args["task"].(string)
			profile, _ := args["profile"].(string)
			if profile == "" {
				profile = "general"
			}
			return d.Delegate(ctx, profile, task)
		},
	}
}
