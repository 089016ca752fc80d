// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package agent_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyph-dev/glyph/internal/agent"
	"github.com/glyph-dev/glyph/internal/provider"
	"github.com/glyph-dev/glyph/internal/provider/providertest"
	"github.com/glyph-dev/glyph/internal/tool"
	"github.com/glyph-dev/glyph/internal/workspace"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

func newTestGate(t *testing.T, specs ...tool.Spec) *tool.Gate {
	t.Helper()
	reg := tool.NewRegistry()
	for _, spec := range specs {
		require.NoError(t, reg.Register(spec))
	}
	return tool.NewGate(tool.GateConfig{
		Registry: reg,
		Mode:     tool.SandboxReadOnly,
		Policy:   tool.ApprovalNever,
	})
}

func echoSpec(name string) tool.Spec {
	return tool.Spec{
		Name:        name,
		Description: "echoes its input back",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			return "echo: " + text, nil
		},
	}
}

func newLoop(t *testing.T, adapter provider.Adapter, gate *tool.Gate, opts ...func(*agent.Config)) *agent.Loop {
	t.Helper()
	cfg := agent.Config{Adapter: adapter, Gate: gate}
	for _, opt := range opts {
		opt(&cfg)
	}
	loop, err := agent.NewLoop(cfg)
	require.NoError(t, err)
	return loop
}

func TestNewLoopRequiresDependencies(t *testing.T) {
	_, err := agent.NewLoop(agent.Config{Gate: newTestGate(t)})
	assert.Error(t, err)

	_, err = agent.NewLoop(agent.Config{Adapter: providertest.NewScripted()})
	assert.Error(t, err)
}

func TestRunPlainAnswer(t *testing.T) {
	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{Content: "four"}},
	)
	loop := newLoop(t, scripted, newTestGate(t))
	state := agent.NewState("you are a calculator")

	result, err := loop.Run(context.Background(), state, "what is 2+2?")
	require.NoError(t, err)

	assert.Equal(t, agent.ReasonDone, result.Reason)
	assert.Equal(t, "four", result.Answer)
	assert.Equal(t, 0, result.Steps)
	assert.Equal(t, 1, scripted.Calls())

	// system + user + assistant
	require.Len(t, result.History, 3)
	assert.Equal(t, provider.RoleSystem, result.History[0].Role)
	assert.Equal(t, provider.RoleUser, result.History[1].Role)
	assert.Equal(t, provider.RoleAssistant, result.History[2].Role)
}

func TestRunToolRoundTrip(t *testing.T) {
	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			Content: "checking",
			ToolCalls: []provider.ToolCall{
				{ID: "call_1", Name: "echo", Arguments: `{"text":"hi"}`},
			},
		}},
		providertest.Turn{Message: provider.Message{Content: "the tool said hi"}},
	)
	loop := newLoop(t, scripted, newTestGate(t, echoSpec("echo")))
	state := agent.NewState("system")

	result, err := loop.Run(context.Background(), state, "use the tool")
	require.NoError(t, err)

	assert.Equal(t, agent.ReasonDone, result.Reason)
	assert.Equal(t, "the tool said hi", result.Answer)
	assert.Equal(t, 1, result.Steps)
	assert.Equal(t, 2, scripted.Calls())

	// The second request must contain the tool result message.
	second := scripted.Request(1)
	last := second[len(second)-1]
	assert.Equal(t, provider.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "echo: hi", last.Content)
	assert.False(t, last.IsError)
}

func TestRunPlanUpdateLandsOnSessionState(t *testing.T) {
	// Wired the way the CLI assembles a session: one PlanState shared
	// between the update_plan builtin and the loop's state.
	ws, err := workspace.NewManager(t.TempDir())
	require.NoError(t, err)
	reg := tool.NewRegistry()
	plan := tool.NewPlanState()
	require.NoError(t, tool.RegisterBuiltins(reg, ws, tool.SandboxWorkspaceWrite, plan))
	gate := tool.NewGate(tool.GateConfig{
		Registry:  reg,
		Mode:      tool.SandboxWorkspaceWrite,
		Policy:    tool.ApprovalNever,
		Workspace: ws,
	})

	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			ToolCalls: []provider.ToolCall{{
				ID:   "call_1",
				Name: "update_plan",
				Arguments: `{"plan":[` +
					`{"step":"survey the repo","status":"completed"},` +
					`{"step":"draft the change","status":"in_progress"}]}`,
			}},
		}},
		providertest.Turn{Message: provider.Message{Content: "plan recorded"}},
	)
	loop := newLoop(t, scripted, gate)
	state := agent.NewStateWithPlan("system", plan)

	result, err := loop.Run(context.Background(), state, "plan the work")
	require.NoError(t, err)
	assert.Equal(t, agent.ReasonDone, result.Reason)

	require.Len(t, result.Plan, 2)
	assert.Equal(t, "survey the repo", result.Plan[0].Step)
	assert.Equal(t, tool.PlanCompleted, result.Plan[0].Status)
	assert.Equal(t, tool.PlanInProgress, result.Plan[1].Status)
	assert.Equal(t, result.Plan, state.Plan().Items())
}

func TestRunParallelResultsKeepEmissionOrder(t *testing.T) {
	slow := tool.Spec{
		Name:        "slow",
		Description: "answers slowly",
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
			}
			return "slow done", nil
		},
	}
	fast := tool.Spec{
		Name:        "fast",
		Description: "answers immediately",
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			return "fast done", nil
		},
	}

	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			ToolCalls: []provider.ToolCall{
				{ID: "call_a", Name: "slow", Arguments: `{}`},
				{ID: "call_b", Name: "fast", Arguments: `{}`},
				{ID: "call_c", Name: "fast", Arguments: `{}`},
			},
		}},
		providertest.Turn{Message: provider.Message{Content: "done"}},
	)
	loop := newLoop(t, scripted, newTestGate(t, slow, fast))

	result, err := loop.Run(context.Background(), agent.NewState(""), "go")
	require.NoError(t, err)
	assert.Equal(t, agent.ReasonDone, result.Reason)

	second := scripted.Request(1)
	// user, assistant, then the three results in emission order.
	require.GreaterOrEqual(t, len(second), 5)
	tail := second[len(second)-3:]
	assert.Equal(t, "call_a", tail[0].ToolCallID)
	assert.Equal(t, "slow done", tail[0].Content)
	assert.Equal(t, "call_b", tail[1].ToolCallID)
	assert.Equal(t, "call_c", tail[2].ToolCallID)
}

func TestRunUnknownToolBecomesErrorResult(t *testing.T) {
	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			ToolCalls: []provider.ToolCall{
				{ID: "call_1", Name: "delete_everything", Arguments: `{}`},
			},
		}},
		providertest.Turn{Message: provider.Message{Content: "understood, that tool does not exist"}},
	)
	loop := newLoop(t, scripted, newTestGate(t, echoSpec("echo")))

	result, err := loop.Run(context.Background(), agent.NewState(""), "nuke it")
	require.NoError(t, err)
	assert.Equal(t, agent.ReasonDone, result.Reason)

	second := scripted.Request(1)
	last := second[len(second)-1]
	assert.Equal(t, provider.RoleTool, last.Role)
	assert.True(t, last.IsError)
	assert.Contains(t, last.Content, "delete_everything")
}

func TestRunDeclinedApprovalContinues(t *testing.T) {
	mutator := tool.Spec{
		Name:        "write_note",
		Description: "writes a note",
		Mutating:    true,
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			return "written", nil
		},
	}
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(mutator))
	gate := tool.NewGate(tool.GateConfig{
		Registry: reg,
		Mode:     tool.SandboxWorkspaceWrite,
		Policy:   tool.ApprovalAlways,
		Confirm:  func(string, string) bool { return false },
	})

	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			ToolCalls: []provider.ToolCall{{ID: "call_1", Name: "write_note", Arguments: `{}`}},
		}},
		providertest.Turn{Message: provider.Message{Content: "understood, leaving it alone"}},
	)
	loop := newLoop(t, scripted, gate)

	result, err := loop.Run(context.Background(), agent.NewState(""), "write a note")
	require.NoError(t, err)
	assert.Equal(t, agent.ReasonDone, result.Reason, "a declined call never aborts the loop")
	assert.Equal(t, 2, scripted.Calls())

	second := scripted.Request(1)
	last := second[len(second)-1]
	assert.True(t, last.IsError)
}

func TestRunMaxStepsBoundary(t *testing.T) {
	// Step budget of 1: one tool turn is allowed, the follow-up model
	// call is not. Scripted holds only one turn, so a second Send would
	// error out and fail the assertions below.
	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			ToolCalls: []provider.ToolCall{
				{ID: "call_1", Name: "echo", Arguments: `{"text":"once"}`},
			},
		}},
	)
	loop := newLoop(t, scripted, newTestGate(t, echoSpec("echo")), func(cfg *agent.Config) {
		cfg.MaxSteps = 1
	})

	result, err := loop.Run(context.Background(), agent.NewState(""), "loop forever")
	require.NoError(t, err)

	assert.Equal(t, agent.ReasonMaxSteps, result.Reason)
	assert.Equal(t, 1, result.Steps)
	assert.Equal(t, 1, scripted.Calls())
	assert.NotEmpty(t, result.Answer)

	// Transcript keeps everything up to and including the synthesized
	// closing message.
	last := result.History[len(result.History)-1]
	assert.Equal(t, provider.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "step limit")
}

func TestRunProviderErrorPreservesHistory(t *testing.T) {
	scripted := providertest.NewScripted(
		providertest.Turn{Err: glypherr.New(glypherr.CodeProviderAuthFailure, "bad key")},
	)
	loop := newLoop(t, scripted, newTestGate(t))

	result, err := loop.Run(context.Background(), agent.NewState("system"), "hello")
	require.Error(t, err)
	assert.True(t, glypherr.HasCode(err, glypherr.CodeProviderAuthFailure),
		"the provider classification survives the loop's wrapping")
	assert.Contains(t, err.Error(), "model call failed")

	require.NotNil(t, result)
	assert.Equal(t, agent.ReasonError, result.Reason)
	require.Len(t, result.History, 2)
	assert.Equal(t, "hello", result.History[1].Content)
}

func TestRunCancellationBeforeModelCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{Content: "never sent"}},
	)
	loop := newLoop(t, scripted, newTestGate(t))

	result, err := loop.Run(ctx, agent.NewState(""), "hello")
	require.NoError(t, err)
	assert.Equal(t, agent.ReasonCancelled, result.Reason)
	assert.Equal(t, 0, scripted.Calls())
}

func TestRunCancellationDuringTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	blocker := tool.Spec{
		Name:        "block",
		Description: "waits for cancellation",
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			cancel()
			<-ctx.Done()
			return "", fmt.Errorf("interrupted")
		},
	}
	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			ToolCalls: []provider.ToolCall{{ID: "call_1", Name: "block", Arguments: `{}`}},
		}},
	)
	loop := newLoop(t, scripted, newTestGate(t, blocker))

	result, err := loop.Run(ctx, agent.NewState(""), "go")
	require.NoError(t, err)
	assert.Equal(t, agent.ReasonCancelled, result.Reason)
	assert.Equal(t, 1, scripted.Calls())

	// The partial transcript still records the attempted call.
	last := result.History[len(result.History)-1]
	assert.Equal(t, provider.RoleTool, last.Role)
}

func TestRunCallbacksFire(t *testing.T) {
	var thinking, assistants, calls, results atomic.Int32

	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{
			Thinking: "let me check",
			ToolCalls: []provider.ToolCall{
				{ID: "call_1", Name: "echo", Arguments: `{"text":"a"}`},
			},
		}},
		providertest.Turn{Message: provider.Message{Content: "done"}},
	)
	loop := newLoop(t, scripted, newTestGate(t, echoSpec("echo")), func(cfg *agent.Config) {
		cfg.Callbacks = &agent.Callbacks{
			OnThinking:   func(string) { thinking.Add(1) },
			OnAssistant:  func(string) { assistants.Add(1) },
			OnToolCall:   func(string, string) { calls.Add(1) },
			OnToolResult: func(string, string, bool) { results.Add(1) },
		}
	})

	_, err := loop.Run(context.Background(), agent.NewState(""), "go")
	require.NoError(t, err)

	assert.Equal(t, int32(1), thinking.Load())
	assert.Equal(t, int32(1), assistants.Load())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), results.Load())
}

func TestRunMultiTurnSession(t *testing.T) {
	scripted := providertest.NewScripted(
		providertest.Turn{Message: provider.Message{Content: "first answer"}},
		providertest.Turn{Message: provider.Message{Content: "second answer"}},
	)
	loop := newLoop(t, scripted, newTestGate(t))
	state := agent.NewState("system")

	first, err := loop.Run(context.Background(), state, "first question")
	require.NoError(t, err)
	assert.Equal(t, "first answer", first.Answer)

	second, err := loop.Run(context.Background(), state, "second question")
	require.NoError(t, err)
	assert.Equal(t, "second answer", second.Answer)

	// The second request carries the whole prior conversation.
	req := scripted.Request(1)
	require.Len(t, req, 4)
	assert.Equal(t, "first question", req[1].Content)
	assert.Equal(t, "first answer", req[2].Content)
	assert.Equal(t, "second question", req[3].Content)
}
