// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Plan statuses.
const (
	PlanPending    = "pending"
	PlanInProgress = "in_progress"
	PlanCompleted  = "completed"
)

// PlanItem is one step of the session task plan.
type PlanItem struct {
	Step   string `json:"step"   yaml:"step"`
	Status string `json:"status" yaml:"status"`
}

// PlanState holds the session plan. Tool execution within a turn may be
// parallel, so writes are serialized here.
type PlanState struct {
	mu    sync.Mutex
	items []PlanItem
}

// NewPlanState returns an empty plan.
func NewPlanState() *PlanState {
	return &PlanState{}
}

// Set replaces the entire plan.
func (p *PlanState) Set(items []PlanItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = make([]PlanItem, len(items))
	copy(p.items, items)
}

// Items returns a copy of the current plan.
func (p *PlanState) Items() []PlanItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PlanItem, len(p.items))
	copy(out, p.items)
	return out
}

type updatePlanArgs struct {
	Plan []PlanItem `json:"plan"`
}

// updatePlanHandler replaces the session plan. Non-mutating in sandbox
// terms: it touches session state, never the filesystem.
func updatePlanHandler(plan *PlanState) Handler {
	return func(_ context.Context, args map[string]any) (string, error) {
		var req updatePlanArgs
		if err := DecodeArgs(args, &req); err != nil {
			return "", err
		}

		normalized := make([]PlanItem, 0, len(req.Plan))
		for _, item := range req.Plan {
			step := strings.TrimSpace(item.Step)
			status := strings.TrimSpace(item.Status)
			if step == "" {
				return "plan step cannot be empty", nil
			}
			switch status {
			case PlanPending, PlanInProgress, PlanCompleted:
			default:
				return fmt.Sprintf("status must be %s | %s | %s", PlanPending, PlanInProgress, PlanCompleted), nil
			}
			normalized = append(normalized, PlanItem{Step: step, Status: status})
		}

		plan.Set(normalized)
		out, err := json.Marshal(map[string]any{"ok": true, "plan_size": len(normalized)})
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
