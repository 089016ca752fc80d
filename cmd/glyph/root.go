// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/glyph-dev/glyph/internal/config"
)

// NewRootCmd creates the root glyph command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "glyph",
		Short:         "Glyph — a tool-calling terminal agent",
		Long:          "Glyph runs a tool-calling agent loop against Anthropic, OpenAI, Gemini, or any OpenAI-compatible endpoint.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(verbose)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().StringP("workspace", "w", "", "workspace root (overrides config)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newRunCmd(),
		newToolsCmd(),
		newProfilesCmd(),
		newVersionCmd(),
	)

	return root
}

// setupLogging routes slog to stderr so stdout stays clean for answers.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the config honoring the persistent flags. Flag values
// beat file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if ws, _ := cmd.Flags().GetString("workspace"); ws != "" {
		cfg.Workspace = ws
	}
	return cfg, nil
}
