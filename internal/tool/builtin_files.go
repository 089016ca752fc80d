// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/glyph-dev/glyph/internal/workspace"
)

const (
	defaultListEntries = 200
	defaultReadLines   = 200
	defaultGrepResults = 200
	listEntryCeiling   = 2000
	readLineCeiling    = 2000
	grepResultCeiling  = 2000
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type listFilesArgs struct {
	Path       string `json:"path"`
	Recursive  *bool  `json:"recursive"`
	MaxEntries int    `json:"max_entries"`
}

func listFilesHandler(ws *workspace.Manager) Handler {
	return func(_ context.Context, args map[string]any) (string, error) {
		var req listFilesArgs
		if err := DecodeArgs(args, &req); err != nil {
			return "", err
		}
		if req.Path == "" {
			req.Path = "."
		}
		recursive := req.Recursive == nil || *req.Recursive
		if req.MaxEntries == 0 {
			req.MaxEntries = defaultListEntries
		}
		maxEntries := clamp(req.MaxEntries, 1, listEntryCeiling)

		root, err := ws.Resolve(req.Path)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Sprintf("path does not exist: %s", req.Path), nil
		}
		if !info.IsDir() {
			rel, relErr := ws.Rel(root)
			if relErr != nil {
				return "", relErr
			}
			return rel, nil
		}

		var entries []string
		truncated := false
		if recursive {
			err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return nil
				}
				if path == root {
					return nil
				}
				rel, relErr := ws.Rel(path)
				if relErr != nil {
					return nil
				}
				if d.IsDir() {
					rel += "/"
				}
				entries = append(entries, rel)
				if len(entries) >= maxEntries {
					truncated = true
					return fs.SkipAll
				}
				return nil
			})
			if err != nil {
				return "", err
			}
		} else {
			items, readErr := os.ReadDir(root)
			if readErr != nil {
				return "", readErr
			}
			for _, item := range items {
				rel, relErr := ws.Rel(filepath.Join(root, item.Name()))
				if relErr != nil {
					continue
				}
				if item.IsDir() {
					rel += "/"
				}
				entries = append(entries, rel)
				if len(entries) >= maxEntries {
					truncated = true
					break
				}
			}
		}

		sort.Strings(entries)
		if truncated {
			entries = append(entries, fmt.Sprintf("... truncated at %d entries", maxEntries))
		}
		if len(entries) == 0 {
			return "(empty directory)", nil
		}
		return strings.Join(entries, "\n"), nil
	}
}

type readFileArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	NumLines  int    `json:"num_lines"`
}

func readFileHandler(ws *workspace.Manager) Handler {
	return func(_ context.Context, args map[string]any) (string, error) {
		var req readFileArgs
		if err := DecodeArgs(args, &req); err != nil {
			return "", err
		}
		if req.StartLine < 1 {
			req.StartLine = 1
		}
		if req.NumLines == 0 {
			req.NumLines = defaultReadLines
		}
		numLines := clamp(req.NumLines, 1, readLineCeiling)

		path, err := ws.Resolve(req.Path)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprintf("file not found: %s", req.Path), nil
		}

		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		start := req.StartLine - 1
		if start >= len(lines) {
			return "(no content)", nil
		}
		end := start + numLines
		if end > len(lines) {
			end = len(lines)
		}

		var b strings.Builder
		for i := start; i < end; i++ {
			fmt.Fprintf(&b, "%6d\t%s", i+1, lines[i])
			if i < end-1 {
				b.WriteByte('\n')
			}
		}
		return b.String(), nil
	}
}

type grepFilesArgs struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path"`
	Glob       string `json:"glob"`
	MaxResults int    `json:"max_results"`
}

func grepFilesHandler(ws *workspace.Manager) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		var req grepFilesArgs
		if err := DecodeArgs(args, &req); err != nil {
			return "", err
		}
		if req.Path == "" {
			req.Path = "."
		}
		if req.MaxResults == 0 {
			req.MaxResults = defaultGrepResults
		}
		maxResults := clamp(req.MaxResults, 1, grepResultCeiling)

		re, err := regexp.Compile(req.Pattern)
		if err != nil {
			return fmt.Sprintf("invalid pattern: %v", err), nil
		}

		root, err := ws.Resolve(req.Path)
		if err != nil {
			return "", err
		}

		var matches []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rel, relErr := ws.Rel(path)
			if relErr != nil {
				return nil
			}
			if req.Glob != "" && !matchGlob(req.Glob, rel) {
				return nil
			}
			data, readErr := os.ReadFile(path)
			if readErr != nil || !isText(data) {
				return nil
			}
			for no, line := range strings.Split(string(data), "\n") {
				if re.MatchString(line) {
					matches = append(matches, fmt.Sprintf("%s:%d:%s", rel, no+1, line))
					if len(matches) >= maxResults {
						return fs.SkipAll
					}
				}
			}
			return nil
		})
		if err != nil {
			return "", err
		}

		if len(matches) == 0 {
			return "(no matches)", nil
		}
		return strings.Join(matches, "\n"), nil
	}
}

// matchGlob matches a glob against both the relative path and its base
// name, so "*.go" hits files in subdirectories too.
func matchGlob(pattern, rel string) bool {
	if ok, err := filepath.Match(pattern, rel); err == nil && ok {
		return true
	}
	ok, err := filepath.Match(pattern, filepath.Base(rel))
	return err == nil && ok
}

// isText filters out binary files with a NUL-byte sniff over the head.
func isText(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	for _, b := range probe {
		if b == 0 {
			return false
		}
	}
	return true
}

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

func writeFileHandler(ws *workspace.Manager, mode SandboxMode) Handler {
	return func(_ context.Context, args map[string]any) (string, error) {
		var req writeFileArgs
		if err := DecodeArgs(args, &req); err != nil {
			return "", err
		}
		if req.Mode == "" {
			req.Mode = "overwrite"
		}

		path, display, err := resolveMutable(ws, mode, req.Path)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return "", err
		}

		switch req.Mode {
		case "overwrite":
			if err := os.WriteFile(path, []byte(req.Content), 0o640); err != nil {
				return "", err
			}
		case "append":
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
			if err != nil {
				return "", err
			}
			if _, err := f.WriteString(req.Content); err != nil {
				f.Close()
				return "", err
			}
			if err := f.Close(); err != nil {
				return "", err
			}
		default:
			return "mode must be one of: overwrite, append", nil
		}

		return fmt.Sprintf("wrote %d bytes to %s (%s)", len(req.Content), display, req.Mode), nil
	}
}

type replaceInFileArgs struct {
	Path  string `json:"path"`
	Old   string `json:"old"`
	New   string `json:"new"`
	Count int    `json:"count"`
}

func replaceInFileHandler(ws *workspace.Manager, mode SandboxMode) Handler {
	return func(_ context.Context, args map[string]any) (string, error) {
		var req replaceInFileArgs
		if err := DecodeArgs(args, &req); err != nil {
			return "", err
		}
		if req.Count < 1 {
			req.Count = 1
		}

		path, display, err := resolveMutable(ws, mode, req.Path)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprintf("file not found: %s", req.Path), nil
		}

		content := string(data)
		if !strings.Contains(content, req.Old) {
			return "no replacements made", nil
		}
		replaced := strings.Replace(content, req.Old, req.New, req.Count)
		if err := os.WriteFile(path, []byte(replaced), 0o640); err != nil {
			return "", err
		}
		return fmt.Sprintf("applied replacements in %s", display), nil
	}
}

// resolveMutable resolves a path for a mutating handler. Under
// danger-full-access the containment check is skipped and absolute paths
// outside the root are honored as given.
func resolveMutable(ws *workspace.Manager, mode SandboxMode, raw string) (abs, display string, err error) {
	if mode == SandboxFullAccess {
		abs = raw
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(ws.Root(), abs)
		}
		return filepath.Clean(abs), raw, nil
	}
	abs, err = ws.Resolve(raw)
	if err != nil {
		return "", "", err
	}
	display, err = ws.Rel(abs)
	if err != nil {
		display = raw
		err = nil
	}
	return abs, display, nil
}
