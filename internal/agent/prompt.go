// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const promptPreamble = `You are Glyph, a terminal coding agent.
You collaborate with the user to complete coding and research tasks safely and efficiently.

# Core Principles
- Be concise, direct, and helpful.
- Respond in the same language as the user unless asked otherwise.
- Think step-by-step for complex tasks. Break down problems before acting.
- Verify before assuming: use tools to check facts rather than guessing.
- Do not hallucinate file paths, function names, or APIs. If unsure, search first.
- Keep changes minimal and focused on the requested goal.

# Tool Usage Strategy
Always prefer dedicated tools over exec_command for common operations:
- Directory listing -> list_files (not ls or find)
- Reading files -> read_file (not cat, head, or tail)
- Searching file contents -> grep_files (not grep or rg)
- Editing existing files -> replace_in_file (not sed or awk)
- Creating new files -> write_file

Use exec_command only for: running tests, git operations, build commands, package management, and other system tasks that have no dedicated tool.

Read before write: always read_file before using replace_in_file so you know the exact text to match.

If multiple independent reads or searches are needed, issue them as parallel tool calls in one response.

For tasks with 3+ steps, use update_plan to track progress and keep the user informed.

For mutating actions, follow runtime approval and sandbox policies.

# Coding Guidelines
## Working with Existing Code
- Read and understand the relevant code before making changes.
- Follow the existing project style, conventions, and structure.
- Prefer root-cause fixes over superficial patches.
- Make minimal, focused changes and avoid unrelated refactors unless explicitly asked.

## Writing New Code
- Match the project's coding style (naming, formatting, patterns).
- Add tests when it is natural and expected in this codebase.
- Avoid introducing unnecessary dependencies or abstractions.

# Git Safety
- Never force-push or amend published commits without explicit user approval.
- Do not commit files that may contain secrets (.env, credentials, API keys).
- Do not push to main/master without user confirmation.
- Prefer creating new commits over amending existing ones.

# Research and Exploration
- Start exploration with a non-recursive list_files to understand project layout.
- Use grep_files to trace function calls, imports, and references across the codebase.
- State assumptions explicitly and verify them with tools before acting.
`

const promptClosing = `# Reminders
- Be helpful, thorough, and patient.
- When errors occur, diagnose the root cause rather than retrying blindly.
- Think twice before irreversible changes: confirm with the user if unsure.
- Keep it simple. The best solution is the simplest one that works correctly.
`

// PromptConfig carries the environment facts rendered into the system prompt.
type PromptConfig struct {
	WorkspaceRoot  string
	SkillsOverview string
	DirListing     string
	Now            time.Time // zero means time.Now
}

// BuildSystemPrompt renders the default system prompt with environment hints,
// guidance files, and discovered skills.
func BuildSystemPrompt(cfg PromptConfig) string {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n# Working Environment\n")
	fmt.Fprintf(&b, "- Current UTC time: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Workspace root: %s\n", cfg.WorkspaceRoot)
	if cfg.DirListing != "" {
		fmt.Fprintf(&b, "- Top-level directory listing:\n%s\n", cfg.DirListing)
	}

	b.WriteString("\n# AGENTS.md Instructions\n")
	b.WriteString("AGENTS.md instructions take precedence over the defaults above when they conflict.\n\n")
	b.WriteString(renderAgentsFiles(cfg.WorkspaceRoot))
	b.WriteString("\n\n# Skills\n")
	if s := strings.TrimSpace(cfg.SkillsOverview); s != "" {
		b.WriteString(s)
	} else {
		b.WriteString("(none)")
	}
	b.WriteString("\n\n")
	b.WriteString(promptClosing)
	return b.String()
}

// FindAgentsFiles walks from dir to the filesystem root collecting AGENTS.md
// and agents.md files. The result is ordered root-most first, so deeper files
// are rendered later and can refine broader guidance.
func FindAgentsFiles(dir string) []string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}

	var found []string
	current := abs
	for {
		for _, name := range []string{"AGENTS.md", "agents.md"} {
			candidate := filepath.Join(current, name)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				found = append(found, candidate)
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	// Walked leaf to root, prompt wants root first.
	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}
	return found
}

func renderAgentsFiles(root string) string {
	files := FindAgentsFiles(root)
	if len(files) == 0 {
		return "(none)"
	}

	blocks := make([]string, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## %s\n%s", file, strings.TrimSpace(string(data))))
	}
	if len(blocks) == 0 {
		return "(none)"
	}
	return strings.Join(blocks, "\n\n")
}

// DirListing produces a shallow listing of root for the prompt environment
// section. Directories carry a trailing slash; hidden entries are skipped.
func DirListing(root string, limit int) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	if limit <= 0 {
		limit = 40
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > limit {
		names = append(names[:limit], "...")
	}
	return strings.Join(names, "\n")
}
