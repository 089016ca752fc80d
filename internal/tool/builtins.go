// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	"time"

	"github.com/glyph-dev/glyph/internal/workspace"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// RegisterBuiltins installs the default tool set: file exploration and
// editing, shell execution, and the session plan.
func RegisterBuiltins(reg *Registry, ws *workspace.Manager, mode SandboxMode, plan *PlanState) error {
	specs := []Spec{
		{
			Name: "list_files",
			Description: "List files and directories under a given path. " +
				"Returns one entry per line; directories have a trailing slash. " +
				"Prefer this tool over exec_command with ls or find for directory exploration. " +
				"By default lists recursively up to 200 entries. " +
				"Use recursive=false for a shallow listing of large directories.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Relative or absolute path to list. Defaults to the workspace root ('.').",
					},
					"recursive": map[string]any{
						"type":        "boolean",
						"description": "If true (default), list all files recursively. Set to false for a shallow listing.",
					},
					"max_entries": map[string]any{
						"type":        "integer",
						"description": "Maximum number of entries to return. Defaults to 200. Range: 1-2000.",
					},
				},
				"required":             []any{},
				"additionalProperties": false,
			},
			PathArguments: []string{"path"},
			Handler:       listFilesHandler(ws),
		},
		{
			Name: "read_file",
			Description: "Read the contents of a file with line numbers. " +
				"Output format is line-numbered (6-digit padded line number followed by a tab and the line content). " +
				"Prefer this tool over exec_command with cat, head, or tail. " +
				"Reads up to 200 lines by default starting from line 1. " +
				"Use start_line and num_lines to read specific sections of large files.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Relative or absolute path to the file to read.",
					},
					"start_line": map[string]any{
						"type":        "integer",
						"description": "1-based line number to start reading from. Defaults to 1.",
					},
					"num_lines": map[string]any{
						"type":        "integer",
						"description": "Number of lines to read. Defaults to 200. Maximum: 2000.",
					},
				},
				"required":             []any{"path"},
				"additionalProperties": false,
			},
			PathArguments: []string{"path"},
			Handler:       readFileHandler(ws),
		},
		{
			Name: "grep_files",
			Description: "Search for a text pattern across files. Supports full regex syntax. " +
				"Prefer this tool over exec_command with grep or rg. " +
				"Output format is file:line_number:matching_line. " +
				"Use the glob parameter to restrict to specific file types (e.g., '*.go', '*.md').",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "Regex pattern to search for in file contents.",
					},
					"path": map[string]any{
						"type":        "string",
						"description": "Directory or file to search in. Defaults to the workspace root ('.').",
					},
					"glob": map[string]any{
						"type":        "string",
						"description": "Glob pattern to filter which files are searched (e.g., '*.go', '*.yaml').",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of matching lines to return. Defaults to 200. Range: 1-2000.",
					},
				},
				"required":             []any{"pattern"},
				"additionalProperties": false,
			},
			PathArguments: []string{"path"},
			Handler:       grepFilesHandler(ws),
		},
		{
			Name: "write_file",
			Description: "Write content to a file. MUTATING operation that creates a new file or overwrites/appends to an existing one. " +
				"Parent directories are created automatically if they do not exist. " +
				"Prefer replace_in_file for targeted edits to existing files. " +
				"Use this tool when creating new files or when the entire file content needs to be replaced.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Relative or absolute path to the file to write.",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "The full text content to write to the file.",
					},
					"mode": map[string]any{
						"type":        "string",
						"enum":        []any{"overwrite", "append"},
						"description": "Write mode. 'overwrite' (default) replaces the entire file. 'append' adds content to the end.",
					},
				},
				"required":             []any{"path", "content"},
				"additionalProperties": false,
			},
			Mutating:      true,
			PathArguments: []string{"path"},
			Handler:       writeFileHandler(ws, mode),
		},
		{
			Name: "replace_in_file",
			Description: "Replace exact text in an existing file. PREFERRED tool for editing existing files: " +
				"always use read_file first to see the current content, then specify the exact old text to replace. " +
				"MUTATING operation. The old string must match exactly (including whitespace and indentation). " +
				"If no match is found, no changes are made.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Relative or absolute path to the file to edit.",
					},
					"old": map[string]any{
						"type":        "string",
						"description": "The exact text to find and replace. Must match the file content exactly, including whitespace.",
					},
					"new": map[string]any{
						"type":        "string",
						"description": "The replacement text. Can be empty to delete the matched text.",
					},
					"count": map[string]any{
						"type":        "integer",
						"description": "Maximum number of occurrences to replace. Defaults to 1.",
					},
				},
				"required":             []any{"path", "old", "new"},
				"additionalProperties": false,
			},
			Mutating:      true,
			PathArguments: []string{"path"},
			Handler:       replaceInFileHandler(ws, mode),
		},
		{
			Name: "exec_command",
			Description: "Execute a shell command and return its output (stdout + stderr) and exit code. " +
				"MUTATING operation. Use this for tasks like running tests, git operations, build commands, " +
				"installing packages, or other system commands. " +
				"Do NOT use this for file listing (use list_files), reading files (use read_file), " +
				"or searching file contents (use grep_files); dedicated tools are faster and safer.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The shell command to execute. Runs via the system shell.",
					},
					"timeout_sec": map[string]any{
						"type":        "integer",
						"description": "Timeout in seconds. Defaults to 120. Range: 1-1800.",
					},
				},
				"required":             []any{"command"},
				"additionalProperties": false,
			},
			Mutating: true,
			// Gate deadline sits above the handler's own timeout_sec ceiling.
			Timeout: (execTimeoutCeiling + 30) * time.Second,
			Handler: execCommandHandler(ws),
		},
		{
			Name: "update_plan",
			Description: "Create or update a lightweight task plan for the current session. " +
				"Use this for tasks that involve 3 or more steps to help track progress. " +
				"Each call replaces the entire plan; always include all steps with their current statuses. " +
				"The plan is displayed to the user for visibility.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"plan": map[string]any{
						"type":        "array",
						"description": "The complete list of plan steps. Each call replaces the entire plan.",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"step": map[string]any{
									"type":        "string",
									"description": "A concise description of this task step.",
								},
								"status": map[string]any{
									"type":        "string",
									"enum":        []any{PlanPending, PlanInProgress, PlanCompleted},
									"description": "Current status of this step.",
								},
							},
							"required":             []any{"step", "status"},
							"additionalProperties": false,
						},
					},
				},
				"required":             []any{"plan"},
				"additionalProperties": false,
			},
			Handler: updatePlanHandler(plan),
		},
	}

	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return glypherr.Wrap(err, glypherr.CodeToolNameConflict, "registering built-in tools")
		}
	}
	return nil
}
