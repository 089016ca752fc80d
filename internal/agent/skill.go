// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package agent

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

const skillFileName = "SKILL.md"

const descriptionLimit = 160

// Skill is one discovered instruction bundle.
type Skill struct {
	Name        string
	Description string
	License     string
	Metadata    map[string]string
	Path        string
	Content     string // markdown body after frontmatter
}

// skillFrontmatter is the intermediate struct for YAML parsing.
type skillFrontmatter struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	License     string            `yaml:"license"`
	Metadata    map[string]string `yaml:"metadata"`
}

// ParseSkillFile reads a SKILL.md file. YAML frontmatter delimited by "---"
// lines is honored when present; a bare markdown file is also accepted, with
// the name taken from the parent directory and the description from the first
// non-heading line.
func ParseSkillFile(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeAgentSkillParseInvalid,
			"agent: reading skill file", glypherr.FieldPath(path))
	}

	content := string(data)
	skill := &Skill{Path: path, Content: content}

	if strings.HasPrefix(content, "---\n") {
		rest := content[4:]
		idx := strings.Index(rest, "\n---\n")
		if idx < 0 {
			return nil, glypherr.New(glypherr.CodeAgentSkillParseInvalid,
				"agent: skill file missing closing frontmatter delimiter", glypherr.FieldPath(path))
		}

		var fm skillFrontmatter
		if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
			return nil, glypherr.Wrap(err, glypherr.CodeAgentSkillParseInvalid,
				"agent: parsing skill frontmatter", glypherr.FieldPath(path))
		}
		skill.Name = fm.Name
		skill.Description = fm.Description
		skill.License = fm.License
		skill.Metadata = fm.Metadata
		skill.Content = rest[idx+5:]
	}

	if skill.Name == "" {
		skill.Name = filepath.Base(filepath.Dir(path))
	}
	skill.Name = normalizeSkillName(skill.Name)
	if skill.Description == "" {
		skill.Description = extractDescription(skill.Content)
	}
	return skill, nil
}

func normalizeSkillName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

func extractDescription(body string) string {
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) > descriptionLimit {
			line = line[:descriptionLimit]
		}
		return line
	}
	return "No description."
}

// SkillCatalog is an in-memory skill index keyed by normalized name.
type SkillCatalog struct {
	skills map[string]*Skill
}

// DiscoverSkills scans the given roots for SKILL.md files, both directly in
// each root and one directory level down. Directories named ".system" are
// reserved and skipped. The first skill claiming a name wins; unparseable
// files are skipped rather than failing the whole scan.
func DiscoverSkills(roots []string) *SkillCatalog {
	catalog := &SkillCatalog{skills: make(map[string]*Skill)}
	for _, root := range roots {
		for _, path := range skillFilesUnder(root) {
			if strings.EqualFold(filepath.Base(filepath.Dir(path)), ".system") {
				continue
			}
			skill, err := ParseSkillFile(path)
			if err != nil {
				continue
			}
			if _, taken := catalog.skills[skill.Name]; taken {
				continue
			}
			catalog.skills[skill.Name] = skill
		}
	}
	return catalog
}

func skillFilesUnder(root string) []string {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil
	}

	var found []string
	direct := filepath.Join(root, skillFileName)
	if fi, err := os.Stat(direct); err == nil && fi.Mode().IsRegular() {
		found = append(found, direct)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return found
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		nested := filepath.Join(root, name, skillFileName)
		if fi, err := os.Stat(nested); err == nil && fi.Mode().IsRegular() {
			found = append(found, nested)
		}
	}
	return found
}

// List returns all skills sorted by name.
func (c *SkillCatalog) List() []*Skill {
	names := make([]string, 0, len(c.skills))
	for name := range c.skills {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Skill, 0, len(names))
	for _, name := range names {
		out = append(out, c.skills[name])
	}
	return out
}

// Get resolves a skill by name, case-insensitively.
func (c *SkillCatalog) Get(name string) (*Skill, bool) {
	skill, ok := c.skills[normalizeSkillName(name)]
	return skill, ok
}

// Overview renders the skills section of the system prompt.
func (c *SkillCatalog) Overview() string {
	skills := c.List()
	if len(skills) == 0 {
		return "(none)"
	}

	lines := []string{
		"A skill is a local instruction bundle stored in `SKILL.md`.",
		"### Available skills",
	}
	for _, skill := range skills {
		lines = append(lines, "- "+skill.Name+": "+skill.Description+" (source: "+skill.Path+")")
	}
	lines = append(lines,
		"### How to use skills",
		"- If the user names a skill explicitly, use it in this turn.",
		"- Read only the needed part of `SKILL.md` to keep context small.",
		"- Resolve relative references from the skill directory first.",
		"- If a skill cannot be loaded, explain briefly and fallback.",
	)
	return strings.Join(lines, "\n")
}
