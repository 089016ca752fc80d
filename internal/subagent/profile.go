// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package subagent delegates focused sub-tasks to an isolated agent run
// with a restricted tool surface.
package subagent

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/glyph-dev/glyph/internal/tool"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Profile describes one delegation role: the prompt appended to the base
// system prompt and the tool surface the delegate is allowed to see.
type Profile struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Prompt       string   `yaml:"prompt"`
	AllowedTools []string `yaml:"allowed_tools"`
	MaxSteps     int      `yaml:"max_steps"`
	// Sandbox optionally loosens the forced read-only delegate sandbox.
	Sandbox string `yaml:"sandbox"`
}

// DefaultProfiles are always available without any profiles file.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:        "general",
			Description: "General-purpose delegate for focused task execution.",
			Prompt: "You are a delegated helper agent. Focus only on the assigned sub-task, " +
				"keep answers concise, and report concrete results.",
		},
		{
			Name:        "reviewer",
			Description: "Review code changes and identify bugs/risks.",
			Prompt: "You are a code reviewer subagent. Prioritize correctness, regressions, " +
				"and missing tests. Provide findings first, then a short summary.",
			AllowedTools: []string{"read_file", "grep_files", "list_files"},
		},
		{
			Name:        "researcher",
			Description: "Inspect codebase context and summarize findings.",
			Prompt: "You are a research subagent. Gather high-signal facts from files/tools, " +
				"state assumptions clearly, and return a structured summary.",
			AllowedTools: []string{"read_file", "grep_files", "list_files"},
		},
	}
}

// Catalog is a validated profile index.
type Catalog struct {
	profiles map[string]Profile
}

// profilesFile is the YAML shape of a profiles document.
type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads extra profiles from a YAML file. Entries with the same
// name as a default replace it.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeSubagentProfileInvalid,
			"subagent: reading profiles file", glypherr.FieldPath(path))
	}

	var doc profilesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeSubagentProfileInvalid,
			"subagent: parsing profiles file", glypherr.FieldPath(path))
	}
	return doc.Profiles, nil
}

// NewCatalog validates profiles against the registry and returns the index.
// A profile referencing a tool the registry does not hold is a configuration
// error here, before any delegation happens. Later profiles override earlier
// ones by name, so callers pass defaults first and file entries after.
func NewCatalog(registry *tool.Registry, profiles ...[]Profile) (*Catalog, error) {
	indexed := make(map[string]Profile)
	for _, group := range profiles {
		for _, profile := range group {
			if profile.Name == "" {
				return nil, glypherr.New(glypherr.CodeSubagentProfileInvalid,
					"subagent: profile without a name")
			}
			if profile.Prompt == "" {
				return nil, glypherr.New(glypherr.CodeSubagentProfileInvalid,
					"subagent: profile has no prompt", glypherr.FieldProfile(profile.Name))
			}
			if profile.Sandbox != "" {
				if _, err := tool.ParseSandboxMode(profile.Sandbox); err != nil {
					return nil, glypherr.Wrap(err, glypherr.CodeSubagentProfileInvalid,
						"subagent: profile sandbox mode", glypherr.FieldProfile(profile.Name))
				}
			}
			if len(profile.AllowedTools) > 0 {
				if _, err := registry.View(profile.AllowedTools); err != nil {
					return nil, glypherr.Wrap(err, glypherr.CodeSubagentProfileInvalid,
						"subagent: profile references unknown tools",
						glypherr.FieldProfile(profile.Name))
				}
			}
			indexed[profile.Name] = profile
		}
	}
	return &Catalog{profiles: indexed}, nil
}

// Get resolves a profile by name.
func (c *Catalog) Get(name string) (Profile, error) {
	profile, ok := c.profiles[name]
	if !ok {
		return Profile{}, glypherr.New(glypherr.CodeSubagentNotFound,
			"subagent: unknown profile", glypherr.FieldProfile(name))
	}
	return profile, nil
}

// List returns all profiles sorted by name.
func (c *Catalog) List() []Profile {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Profile, 0, len(names))
	for _, name := range names {
		out = append(out, c.profiles[name])
	}
	return out
}
