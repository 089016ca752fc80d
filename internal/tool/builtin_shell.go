// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package tool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/glyph-dev/glyph/internal/workspace"
)

const (
	defaultExecTimeout = 120 * time.Second
	execTimeoutCeiling = 1800
	execOutputLimit    = 6000
)

type execCommandArgs struct {
	Command    string `json:"command"`
	TimeoutSec int    `json:"timeout_sec"`
}

// execCommandHandler runs a shell command with the workspace root as its
// working directory. The sandbox's path restriction is inherited through
// that working directory; the command's own output never aborts the loop.
func execCommandHandler(ws *workspace.Manager) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		var req execCommandArgs
		if err := DecodeArgs(args, &req); err != nil {
			return "", err
		}

		timeout := defaultExecTimeout
		if req.TimeoutSec > 0 {
			timeout = time.Duration(clamp(req.TimeoutSec, 1, execTimeoutCeiling)) * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", req.Command)
		cmd.Dir = ws.Root()
		cmd.WaitDelay = 5 * time.Second

		out, err := cmd.CombinedOutput()
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Sprintf("command timed out after %s", timeout), nil
		}

		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				return "", err
			}
		}

		output := strings.TrimSpace(string(out))
		if len(output) > execOutputLimit {
			output = output[:execOutputLimit] + "\n... (truncated)"
		}
		return fmt.Sprintf("exit_code=%d\n%s", exitCode, output), nil
	}
}
