// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glyph-dev/glyph/internal/agent"
	"github.com/glyph-dev/glyph/internal/subagent"
	"github.com/glyph-dev/glyph/internal/tool"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the agent on a single task",
		Long: "Runs the agent loop on the given prompt (or stdin when omitted) and prints the final answer. " +
			"Mutating tool calls prompt for approval according to the configured policy.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				prompt = strings.TrimSpace(string(data))
			}
			if prompt == "" {
				return fmt.Errorf("no prompt given on the command line or stdin")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			adapter, err := buildAdapter(ctx, cfg)
			if err != nil {
				return err
			}

			delegator, err := subagent.NewDelegator(subagent.Config{
				Adapter:    adapter,
				Catalog:    rt.catalog,
				Parent:     rt.registry,
				Workspace:  rt.workspace,
				BasePrompt: rt.systemPrompt(),
				MaxSteps:   cfg.Subagents.MaxSteps,
				Logger:     rt.logger,
			})
			if err != nil {
				return err
			}
			if err := rt.registry.Register(delegator.Tool()); err != nil {
				return err
			}

			mode, err := tool.ParseSandboxMode(cfg.Sandbox.Mode)
			if err != nil {
				return err
			}
			policy, err := tool.ParseApprovalPolicy(cfg.Sandbox.Approval)
			if err != nil {
				return err
			}

			gate := tool.NewGate(tool.GateConfig{
				Registry:  rt.registry,
				Mode:      mode,
				Policy:    policy,
				Workspace: rt.workspace,
				Confirm:   stdinConfirm(cmd.OutOrStdout()),
				Logger:    rt.logger,
			})

			loop, err := agent.NewLoop(agent.Config{
				Adapter:         adapter,
				Gate:            gate,
				MaxSteps:        cfg.Agent.MaxSteps,
				ToolConcurrency: cfg.Agent.ToolConcurrency,
				Logger:          rt.logger,
				Callbacks:       progressCallbacks(cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}

			state := agent.NewStateWithPlan(rt.systemPrompt(), rt.plan)
			result, err := loop.Run(ctx, state, prompt)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
			printPlan(cmd.ErrOrStderr(), result.Plan)
			if result.Reason != agent.ReasonDone {
				fmt.Fprintf(cmd.ErrOrStderr(), "run ended: %s after %d step(s)\n", result.Reason, result.Steps)
			}
			return nil
		},
	}
	return cmd
}

// printPlan shows the session plan as the model last left it.
func printPlan(out io.Writer, items []tool.PlanItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(out, "plan:")
	for _, item := range items {
		marker := " "
		switch item.Status {
		case tool.PlanInProgress:
			marker = ">"
		case tool.PlanCompleted:
			marker = "x"
		}
		fmt.Fprintf(out, "  [%s] %s\n", marker, item.Step)
	}
}

// stdinConfirm prompts on the terminal for mutating tool approval.
func stdinConfirm(out io.Writer) tool.ConfirmFunc {
	reader := bufio.NewReader(os.Stdin)
	return func(toolName, preview string) bool {
		fmt.Fprintf(out, "\nallow %s?\n%s\n[y/N] ", toolName, preview)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

// progressCallbacks streams loop progress to stderr, keeping stdout clean
// for the final answer.
func progressCallbacks(out io.Writer) *agent.Callbacks {
	return &agent.Callbacks{
		OnToolCall: func(name, arguments string) {
			if len(arguments) > 120 {
				arguments = arguments[:120] + "..."
			}
			fmt.Fprintf(out, "* %s %s\n", name, arguments)
		},
		OnToolResult: func(name, output string, isError bool) {
			if !isError {
				return
			}
			if len(output) > 200 {
				output = output[:200] + "..."
			}
			fmt.Fprintf(out, "! %s: %s\n", name, output)
		},
	}
}
