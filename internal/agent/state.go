// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package agent drives the step state machine: send history to an adapter,
// gate the returned tool calls, append results, repeat until a final
// answer or the step budget runs out.
package agent

import (
	"sync"

	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/tool"
)

// TerminationReason says why a loop run ended.
type TerminationReason string

const (
	ReasonDone      TerminationReason = "done"
	ReasonMaxSteps  TerminationReason = "max_steps_exceeded"
	ReasonCancelled TerminationReason = "cancelled"
	ReasonError     TerminationReason = "error"
)

// State is one session's conversation state. Owned exclusively by a single
// loop instance; tool execution within a turn may be parallel, so history
// writes stay behind the mutex.
type State struct {
	mu       sync.Mutex
	messages []provider.Message
	steps    int
	plan     *tool.PlanState
}

// NewState seeds a state with a system prompt. An empty prompt is allowed
// for delegated runs that inject their own instructions.
func NewState(systemPrompt string) *State {
	return NewStateWithPlan(systemPrompt, tool.NewPlanState())
}

// NewStateWithPlan seeds a state sharing an existing plan. The session
// wiring hands the same PlanState to the update_plan tool, so plan writes
// made through the gate land on this state and come back in the Result.
func NewStateWithPlan(systemPrompt string, plan *tool.PlanState) *State {
	if plan == nil {
		plan = tool.NewPlanState()
	}
	s := &State{plan: plan}
	if systemPrompt != "" {
		s.messages = append(s.messages, provider.Message{
			Role:    provider.RoleSystem,
			Content: systemPrompt,
		})
	}
	return s
}

// Append adds messages to the transcript.
func (s *State) Append(msgs ...provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// History returns a copy of the transcript.
func (s *State) History() []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Steps returns how many model turns have completed tool dispatch.
func (s *State) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

func (s *State) incrementSteps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps++
	return s.steps
}

// Plan exposes the session task plan.
func (s *State) Plan() *tool.PlanState { return s.plan }

// Result is the outcome of one loop run. History always carries the full
// transcript up to termination, whatever the reason; Plan is the session
// task plan as last written through update_plan.
type Result struct {
	Answer  string
	Reason  TerminationReason
	Steps   int
	History []provider.Message
	Plan    []tool.PlanItem
}
