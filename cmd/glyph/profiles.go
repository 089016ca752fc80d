// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the subagent profiles available for delegation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, profile := range rt.catalog.List() {
				steps := profile.MaxSteps
				if steps <= 0 {
					steps = cfg.Subagents.MaxSteps
				}
				fmt.Fprintf(w, "%s\t%d steps\t%s\n", profile.Name, steps, profile.Description)
			}
			return w.Flush()
		},
	}
}
