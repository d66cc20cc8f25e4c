// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/internal/pipeline"
)

var cutoffCmd = &cobra.Command{
	Use:   "cutoff <topic>",
	Short: "Resolve the cutoff paper for a topic",
	Long: `Cutoff searches the record source for papers whose normalized title equals
the topic (or --cutoff-title) and picks the earliest one as the cutoff.
With --cutoff-id the paper is fetched directly. The result is written to
cutoff.json; no phrases or queries are generated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runConfig(strings.Join(args, " "))
		if err != nil {
			return err
		}
		src, err := newSource(cfg.Source)
		if err != nil {
			return err
		}
		s := &pipeline.Seeder{Source: src, Log: logger, Out: os.Stdout, Metrics: recorder}
		_, err = s.ResolveCutoff(cmd.Context(), cfg, uuid.NewString())
		return err
	},
}

func init() {
	addCutoffFlags(cutoffCmd.Flags())
	addSourceFlags(cutoffCmd.Flags())
	rootCmd.AddCommand(cutoffCmd)
}
