// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package providertest offers a deterministic in-memory adapter for loop
// and delegation tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/glyph-dev/glyph/internal/provider"
)

// Turn configures one model response in a scripted sequence.
type Turn struct {
	Message provider.Message
	Err     error
}

// Scripted is a provider.Adapter that replays a fixed response sequence.
// It records every history snapshot it is sent so tests can assert on
// transcript shape.
type Scripted struct {
	mu       sync.Mutex
	index    int
	turns    []Turn
	requests [][]provider.Message
	tools    [][]provider.ToolDefinition
}

// NewScripted builds a scripted adapter from the given turns.
func NewScripted(turns ...Turn) *Scripted {
	cloned := make([]Turn, len(turns))
	copy(cloned, turns)
	return &Scripted{turns: cloned}
}

var _ provider.Adapter = (*Scripted)(nil)

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) Send(_ context.Context, history []provider.Message, tools []provider.ToolDefinition) (*provider.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]provider.Message, len(history))
	copy(snapshot, history)
	s.requests = append(s.requests, snapshot)

	toolSnapshot := make([]provider.ToolDefinition, len(tools))
	copy(toolSnapshot, tools)
	s.tools = append(s.tools, toolSnapshot)

	if s.index >= len(s.turns) {
		return nil, fmt.Errorf("scripted: sequence exhausted at call %d", s.index+1)
	}
	turn := s.turns[s.index]
	s.index++

	if turn.Err != nil {
		return nil, turn.Err
	}
	msg := turn.Message
	if msg.Role == "" {
		msg.Role = provider.RoleAssistant
	}
	return &msg, nil
}

// Calls reports how many times Send was invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Request returns the history snapshot from the i-th Send call.
func (s *Scripted) Request(i int) []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// Tools returns the tool definitions offered on the i-th Send call.
func (s *Scripted) Tools(i int) []provider.ToolDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools[i]
}
