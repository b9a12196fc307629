// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneskills/cs-agent-registry-api/pkg/skills"
)

func newImportSkillsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import-skills <dir>",
		Short: "Import SKILL.md directories into the configured storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			specs, err := skills.LoadDir(args[0])
			if err != nil {
				return fmt.Errorf("load skills: %w", err)
			}

			ctx := cmd.Context()
			svc, closeService, err := openService(ctx, cfg, newLogger(io.Discard, cfg), nil)
			if err != nil {
				return err
			}
			defer closeService(ctx)

			report, err := skills.Import(ctx, svc.Skills, specs)
			out := cmd.OutOrStdout()
			for _, id := range report.Created {
				fmt.Fprintf(out, "created %s\n", id)
			}
			for _, id := range report.Skipped {
				fmt.Fprintf(out, "skipped %s (already exists)\n", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d created, %d skipped\n", len(report.Created), len(report.Skipped))
			return nil
		},
	}
}
