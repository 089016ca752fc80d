// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glyph-dev/glyph/internal/agent"
	"github.com/glyph-dev/glyph/internal/config"
	"github.com/glyph-dev/glyph/internal/mcp"
	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/provider/anthropic"
	"github.com/glyph-dev/glyph/internal/provider/compat"
	"github.com/glyph-dev/glyph/internal/provider/google"
	"github.com/glyph-dev/glyph/internal/provider/openai"
	"github.com/glyph-dev/glyph/internal/subagent"
	"github.com/glyph-dev/glyph/internal/tool"
	"github.com/glyph-dev/glyph/internal/workspace"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// runtime holds the tool-side session dependencies, assembled once per
// command. The provider adapter is built separately so that inspection
// commands work without credentials.
type runtime struct {
	cfg       *config.Config
	workspace *workspace.Manager
	registry  *tool.Registry
	plan      *tool.PlanState
	bridge    *mcp.Bridge
	skills    *agent.SkillCatalog
	catalog   *subagent.Catalog
	logger    *slog.Logger
}

// buildRuntime wires workspace, builtins, MCP bridges, skills, and the
// subagent catalog from config.
func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger := slog.Default()

	ws, err := workspace.NewManager(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	mode, err := tool.ParseSandboxMode(cfg.Sandbox.Mode)
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()
	// The run command hands this same plan to the session state, so writes
	// made through the update_plan tool surface in the loop result.
	plan := tool.NewPlanState()
	if err := tool.RegisterBuiltins(registry, ws, mode, plan); err != nil {
		return nil, err
	}

	bridge := mcp.NewBridge(logger)
	for _, path := range mcpConfigPaths(cfg, ws.Root()) {
		servers, err := mcp.LoadConfig(path)
		if err != nil {
			logger.Warn("skipping MCP config", "path", path, "error", err)
			continue
		}
		for _, server := range servers {
			if err := bridge.Connect(ctx, registry, server); err != nil {
				logger.Warn("MCP server unavailable", "server", server.Name, "error", err)
			}
		}
	}

	skills := agent.DiscoverSkills(skillRoots(cfg, ws.Root()))

	profiles := [][]subagent.Profile{subagent.DefaultProfiles()}
	if path := cfg.Subagents.ProfilesPath; path != "" {
		extra, err := subagent.LoadProfiles(path)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, extra)
	}
	catalog, err := subagent.NewCatalog(registry, profiles...)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:       cfg,
		workspace: ws,
		registry:  registry,
		plan:      plan,
		bridge:    bridge,
		skills:    skills,
		catalog:   catalog,
		logger:    logger,
	}, nil
}

func (rt *runtime) Close() error {
	return rt.bridge.Close()
}

// systemPrompt renders the session prompt from the workspace environment.
func (rt *runtime) systemPrompt() string {
	return agent.BuildSystemPrompt(agent.PromptConfig{
		WorkspaceRoot:  rt.workspace.Root(),
		SkillsOverview: rt.skills.Overview(),
		DirListing:     agent.DirListing(rt.workspace.Root(), 40),
	})
}

// buildAdapter assembles the configured provider wrapped with the default
// retry policy.
func buildAdapter(ctx context.Context, cfg *config.Config) (provider.Adapter, error) {
	pc := cfg.ProviderFor(cfg.Provider)

	var (
		adapter provider.Adapter
		err     error
	)
	switch cfg.Provider {
	case "anthropic":
		adapter, err = anthropic.New(anthropic.Config{
			APIKey:      firstNonEmpty(pc.APIKey, os.Getenv("ANTHROPIC_API_KEY")),
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		})
	case "openai":
		adapter, err = openai.New(openai.Config{
			APIKey:      firstNonEmpty(pc.APIKey, os.Getenv("OPENAI_API_KEY")),
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		})
	case "google":
		adapter, err = google.New(ctx, google.Config{
			APIKey:      firstNonEmpty(pc.APIKey, os.Getenv("GEMINI_API_KEY")),
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		})
	case "compat":
		adapter, err = compat.New(compat.Config{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
		})
	default:
		return nil, glypherr.New(glypherr.CodeProviderNotFound,
			"unknown provider", glypherr.FieldProvider(cfg.Provider))
	}
	if err != nil {
		return nil, err
	}

	return provider.WithRetry(adapter, provider.DefaultRetryPolicy()), nil
}

// mcpConfigPaths resolves configured MCP config files, defaulting to a
// `.mcp.json` in the workspace root when present.
func mcpConfigPaths(cfg *config.Config, root string) []string {
	if len(cfg.MCP.ConfigPaths) > 0 {
		paths := make([]string, 0, len(cfg.MCP.ConfigPaths))
		for _, p := range cfg.MCP.ConfigPaths {
			if !filepath.IsAbs(p) {
				p = filepath.Join(root, p)
			}
			paths = append(paths, p)
		}
		return paths
	}

	fallback := filepath.Join(root, ".mcp.json")
	if _, err := os.Stat(fallback); err == nil {
		return []string{fallback}
	}
	return nil
}

// skillRoots resolves configured skill directories, defaulting to
// `.glyph/skills` under the workspace root.
func skillRoots(cfg *config.Config, root string) []string {
	if len(cfg.Skills.Roots) > 0 {
		roots := make([]string, 0, len(cfg.Skills.Roots))
		for _, r := range cfg.Skills.Roots {
			if !filepath.IsAbs(r) {
				r = filepath.Join(root, r)
			}
			roots = append(roots, r)
		}
		return roots
	}
	return []string{filepath.Join(root, ".glyph", "skills")}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
