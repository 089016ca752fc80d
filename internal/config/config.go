// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package config loads the runtime configuration from file, environment,
// and defaults.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/glyph-dev/glyph/internal/tool"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Config is the top-level Glyph configuration.
type Config struct {
	Provider  string                    `mapstructure:"provider"`
	Model     string                    `mapstructure:"model"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Agent     AgentConfig               `mapstructure:"agent"`
	Sandbox   SandboxConfig             `mapstructure:"sandbox"`
	Workspace string                    `mapstructure:"workspace"`
	Skills    SkillsConfig              `mapstructure:"skills"`
	MCP       MCPConfig                 `mapstructure:"mcp"`
	Subagents SubagentsConfig           `mapstructure:"subagents"`
}

// ProviderConfig holds credentials and endpoint for one model provider.
type ProviderConfig struct {
	APIKey      string   `mapstructure:"api_key"`
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature *float64 `mapstructure:"temperature"`
}

// AgentConfig bounds the loop.
type AgentConfig struct {
	MaxSteps        int `mapstructure:"max_steps"`
	ToolConcurrency int `mapstructure:"tool_concurrency"`
}

// SandboxConfig selects the tool execution policy.
type SandboxConfig struct {
	Mode     string `mapstructure:"mode"`
	Approval string `mapstructure:"approval"`
}

// SkillsConfig lists directories scanned for SKILL.md bundles.
type SkillsConfig struct {
	Roots []string `mapstructure:"roots"`
}

// MCPConfig lists `.mcp.json`-style server config files.
type MCPConfig struct {
	ConfigPaths []string `mapstructure:"config_paths"`
}

// SubagentsConfig points at an optional profiles file and bounds delegate
// runs.
type SubagentsConfig struct {
	ProfilesPath string `mapstructure:"profiles_path"`
	MaxSteps     int    `mapstructure:"max_steps"`
}

// knownProviders are the adapter names the CLI can assemble.
var knownProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"google":    true,
	"compat":    true,
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix GLYPH_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("provider", "anthropic")
	v.SetDefault("workspace", ".")
	v.SetDefault("agent.max_steps", 20)
	v.SetDefault("agent.tool_concurrency", 4)
	v.SetDefault("sandbox.mode", "workspace-write")
	v.SetDefault("sandbox.approval", "on-request")
	v.SetDefault("subagents.max_steps", 8)

	// Environment
	v.SetEnvPrefix("GLYPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, glypherr.Wrap(err, glypherr.CodeConfigLoadReadFailure,
				"config: reading file", glypherr.FieldPath(path))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeConfigParseInvalidFormat, "config: unmarshalling")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, glypherr.Wrap(errors.Join(errs...),
			glypherr.CodeConfigValidateInvalidValue, "config: validation failed")
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if !knownProviders[c.Provider] {
		errs = append(errs, glypherr.Errorf(glypherr.CodeConfigValidateInvalidValue,
			"config: provider must be one of [anthropic, openai, google, compat], got %q", c.Provider))
	}

	if c.Agent.MaxSteps < 1 {
		errs = append(errs, glypherr.Errorf(glypherr.CodeConfigValidateInvalidValue,
			"config: agent.max_steps must be at least 1, got %d", c.Agent.MaxSteps))
	}
	if c.Agent.ToolConcurrency < 1 {
		errs = append(errs, glypherr.Errorf(glypherr.CodeConfigValidateInvalidValue,
			"config: agent.tool_concurrency must be at least 1, got %d", c.Agent.ToolConcurrency))
	}

	if _, err := tool.ParseSandboxMode(c.Sandbox.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := tool.ParseApprovalPolicy(c.Sandbox.Approval); err != nil {
		errs = append(errs, err)
	}

	if c.Workspace == "" {
		errs = append(errs, glypherr.New(glypherr.CodeConfigValidateInvalidValue,
			"config: workspace must not be empty"))
	}

	if c.Subagents.MaxSteps < 1 {
		errs = append(errs, glypherr.Errorf(glypherr.CodeConfigValidateInvalidValue,
			"config: subagents.max_steps must be at least 1, got %d", c.Subagents.MaxSteps))
	}

	if c.Provider == "compat" {
		compat := c.Providers["compat"]
		if compat.BaseURL == "" {
			errs = append(errs, glypherr.New(glypherr.CodeConfigValidateInvalidValue,
				"config: providers.compat.base_url is required for the compat provider"))
		}
		if compat.Model == "" && c.Model == "" {
			errs = append(errs, glypherr.New(glypherr.CodeConfigValidateInvalidValue,
				"config: a model is required for the compat provider"))
		}
	}

	return errs
}

// ProviderFor resolves the effective settings for the named provider,
// folding in the top-level model override.
func (c *Config) ProviderFor(name string) ProviderConfig {
	pc := c.Providers[name]
	if c.Model != "" {
		pc.Model = c.Model
	}
	return pc
}
