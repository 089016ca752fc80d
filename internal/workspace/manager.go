// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package workspace owns the workspace root and path containment. Every
// file path a tool touches resolves through here first.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Manager resolves tool-supplied paths against a canonical workspace root
// and refuses anything that escapes it.
type Manager struct {
	root string
}

// NewManager canonicalizes root (absolute, symlinks resolved) and returns
// a manager bound to it. The root must exist and be a directory.
func NewManager(root string) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeWorkspacePathInvalid,
			"workspace: resolving root", glypherr.FieldPath(root))
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeWorkspaceOpenFailure,
			"workspace: canonicalizing root", glypherr.FieldPath(abs))
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeWorkspaceOpenFailure,
			"workspace: stat root", glypherr.FieldPath(resolved))
	}
	if !info.IsDir() {
		return nil, glypherr.New(glypherr.CodeWorkspacePathInvalid,
			"workspace: root is not a directory", glypherr.FieldPath(resolved))
	}

	return &Manager{root: resolved}, nil
}

// Root returns the canonical workspace root.
func (m *Manager) Root() string { return m.root }

// Resolve turns a tool-supplied path (relative to the root, or absolute)
// into a canonical absolute path, verifying containment. Symlinks along
// the deepest existing ancestor are resolved before the boundary check so
// a link pointing outside the root cannot smuggle a path through.
func (m *Manager) Resolve(path string) (string, error) {
	if path == "" {
		path = "."
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.root, abs)
	}
	abs = filepath.Clean(abs)

	canonical, err := canonicalize(abs)
	if err != nil {
		return "", glypherr.Wrap(err, glypherr.CodeWorkspacePathInvalid,
			"workspace: canonicalizing path", glypherr.FieldPath(path))
	}

	if !m.contains(canonical) {
		return "", glypherr.New(glypherr.CodeWorkspacePathEscape,
			"workspace: path escapes workspace root",
			glypherr.FieldPath(path))
	}

	return canonical, nil
}

// Rel resolves a path and returns it relative to the root, slash-separated.
func (m *Manager) Rel(path string) (string, error) {
	abs, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil {
		return "", glypherr.Wrap(err, glypherr.CodeWorkspacePathEscape,
			"workspace: relativizing path", glypherr.FieldPath(path))
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// Contains reports whether an already-resolved absolute path sits inside
// the workspace root.
func (m *Manager) Contains(abs string) bool {
	canonical, err := canonicalize(filepath.Clean(abs))
	if err != nil {
		return false
	}
	return m.contains(canonical)
}

func (m *Manager) contains(abs string) bool {
	return abs == m.root || strings.HasPrefix(abs, m.root+string(filepath.Separator))
}

// canonicalize resolves symlinks on the deepest existing ancestor of abs
// and rejoins the non-existent suffix. New files get boundary-checked
// against where they would actually land.
func canonicalize(abs string) (string, error) {
	remainder := ""
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}
