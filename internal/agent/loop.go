// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/tool"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// defaultMaxSteps caps model turns per run when the config leaves it unset.
const defaultMaxSteps = 20

// defaultToolConcurrency bounds parallel tool execution within one turn.
const defaultToolConcurrency = 4

// truncationNotice is the synthesized closing message when the step budget
// runs out mid-task.
const truncationNotice = "Reached the step limit before finishing. " +
	"The transcript above holds all completed work; re-run with a higher step budget to continue."

// Callbacks are optional observation hooks. The loop stays renderer-agnostic;
// the CLI decides how to show progress.
type Callbacks struct {
	OnThinking   func(text string)
	OnAssistant  func(text string)
	OnToolCall   func(name, arguments string)
	OnToolResult func(name, output string, isError bool)
}

// Config holds loop dependencies.
type Config struct {
	Adapter         provider.Adapter
	Gate            *tool.Gate
	MaxSteps        int
	ToolConcurrency int
	Logger          *slog.Logger
	Callbacks       *Callbacks
}

// Loop runs the state machine for one session. No two model calls for the
// same State are ever in flight concurrently.
type Loop struct {
	adapter     provider.Adapter
	gate        *tool.Gate
	maxSteps    int
	concurrency int
	logger      *slog.Logger
	cb          *Callbacks
}

// NewLoop assembles a loop.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Adapter == nil {
		return nil, glypherr.New(glypherr.CodeAgentLoopInvalidInput, "agent: adapter is required")
	}
	if cfg.Gate == nil {
		return nil, glypherr.New(glypherr.CodeAgentLoopInvalidInput, "agent: tool gate is required")
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	concurrency := cfg.ToolConcurrency
	if concurrency <= 0 {
		concurrency = defaultToolConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		adapter:     cfg.Adapter,
		gate:        cfg.Gate,
		maxSteps:    maxSteps,
		concurrency: concurrency,
		logger:      logger,
		cb:          cfg.Callbacks,
	}, nil
}

// Run executes one user turn to completion. The returned Result always
// carries the transcript accumulated so far; a non-nil error accompanies
// only unrecoverable provider failures (auth, invalid response).
func (l *Loop) Run(ctx context.Context, state *State, userInput string) (*Result, error) {
	if userInput != "" {
		state.Append(provider.Message{Role: provider.RoleUser, Content: userInput})
	}

	tools := l.gate.Registry().Definitions()

	for {
		// Hard ceiling, checked before issuing a new model call.
		if state.Steps() >= l.maxSteps {
			state.Append(provider.Message{Role: provider.RoleAssistant, Content: truncationNotice})
			l.logger.Info("step budget exhausted", "steps", state.Steps(), "max_steps", l.maxSteps)
			return l.result(state, truncationNotice, ReasonMaxSteps), nil
		}

		if err := ctx.Err(); err != nil {
			return l.result(state, "", ReasonCancelled), nil
		}

		assistant, err := l.adapter.Send(ctx, state.History(), tools)
		if err != nil {
			if glypherr.IsCancelled(err) || ctx.Err() != nil {
				return l.result(state, "", ReasonCancelled), nil
			}
			// Retryable kinds were already retried inside the adapter
			// wrapper; whatever reaches here terminates the run.
			return l.result(state, "", ReasonError),
				glypherr.Wrap(err, glypherr.CodeAgentLoopFailure, "agent: model call failed")
		}

		if assistant.Thinking != "" && l.cb != nil && l.cb.OnThinking != nil {
			l.cb.OnThinking(assistant.Thinking)
		}
		if assistant.Content != "" && l.cb != nil && l.cb.OnAssistant != nil {
			l.cb.OnAssistant(assistant.Content)
		}

		state.Append(*assistant)

		if len(assistant.ToolCalls) == 0 {
			return l.result(state, assistant.Content, ReasonDone), nil
		}

		results := l.executeToolCalls(ctx, assistant.ToolCalls)
		for _, res := range results {
			state.Append(res.Message())
		}

		state.incrementSteps()

		if ctx.Err() != nil {
			return l.result(state, "", ReasonCancelled), nil
		}
	}
}

// executeToolCalls dispatches one assistant turn's calls. Calls may run
// concurrently, but results land in a slot array indexed by emission order
// so the transcript stays deterministic whatever the completion order.
func (l *Loop) executeToolCalls(ctx context.Context, calls []provider.ToolCall) []provider.ToolResult {
	results := make([]provider.ToolResult, len(calls))

	sem := make(chan struct{}, l.concurrency)
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(slot int, call provider.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if l.cb != nil && l.cb.OnToolCall != nil {
				l.cb.OnToolCall(call.Name, call.Arguments)
			}
			res := l.gate.Execute(ctx, call)
			if l.cb != nil && l.cb.OnToolResult != nil {
				l.cb.OnToolResult(call.Name, res.Output, res.IsError)
			}
			results[slot] = res
		}(i, call)
	}
	wg.Wait()

	return results
}

func (l *Loop) result(state *State, answer string, reason TerminationReason) *Result {
	return &Result{
		Answer:  answer,
		Reason:  reason,
		Steps:   state.Steps(),
		History: state.History(),
		Plan:    state.Plan().Items(),
	}
}
