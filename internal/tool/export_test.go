// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import "context"

// ValidateArgs exposes validateArgs for white-box testing.
var ValidateArgs = validateArgs

// MatchGlob exposes matchGlob for white-box testing.
var MatchGlob = matchGlob

// ApprovalCheck exposes checkApproval for white-box testing.
func (g *Gate) ApprovalCheck(spec Spec, args map[string]any) error {
	return g.checkApproval(spec, args)
}

// PathCheck exposes checkPaths for white-box testing.
func (g *Gate) PathCheck(spec Spec, args map[string]any) error {
	return g.checkPaths(spec, args)
}

// RunHandler exposes run for white-box testing.
func (g *Gate) RunHandler(ctx context.Context, spec Spec, args map[string]any) (string, error) {
	return g.run(ctx, spec, args)
}
