// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/llmcli"
	"github.com/pdiddy/review-engine/internal/pipeline"
)

var seedCmd = &cobra.Command{
	Use:   "seed <topic>",
	Short: "Build the seed set for a topic",
	Long: `Seed resolves the cutoff paper whose title matches the topic, asks the
generator command for search phrases once, turns each phrase into a boolean
query and runs the queries against the record source. Candidates that are
the cutoff itself, dated after it, or missing a date are dropped. The rest
are merged, newest first, into selection.json.

The generator command reads a prompt on stdin and prints phrases on stdout,
either as a JSON array of strings or one per line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeed,
}

func init() {
	fs := seedCmd.Flags()
	addCutoffFlags(fs)
	addSourceFlags(fs)
	fs.Int("phrases", defaults.PhraseCount, "number of phrases to request from the generator")
	fs.String("blacklist-mode", string(defaults.BlacklistMode), "review-term handling: clean removes the term, fail drops the phrase")
	fs.Int("max-query-tokens", defaults.MaxQueryTokens, "maximum tokens per query")
	fs.Int("per-query-max", defaults.PerQueryMax, "results requested per query")
	fs.Int("max-total", defaults.MaxTotal, "cap on the selection set (0 for no cap)")
	fs.Int("query-workers", defaults.QueryWorkers, "concurrent search requests")
	fs.Bool("strict-dates", false, "fail when a candidate has no date on --date-field")
	fs.String("generator-cmd", "", "command that generates search phrases (required)")

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := runConfig(strings.Join(args, " "))
	if err != nil {
		return err
	}
	genLine := viper.GetString("generator-cmd")
	if genLine == "" {
		return fmt.Errorf("--generator-cmd is required")
	}
	gen, err := llmcli.ParseCommand(genLine)
	if err != nil {
		return fmt.Errorf("parsing --generator-cmd: %w", err)
	}
	if err := gen.Check(); err != nil {
		return err
	}
	src, err := newSource(cfg.Source)
	if err != nil {
		return err
	}

	s := &pipeline.Seeder{
		Source:    src,
		Generator: &llmcli.CommandGenerator{Cmd: gen},
		Log:       logger,
		Out:       os.Stdout,
		Metrics:   recorder,
	}
	seed, err := s.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %d seed papers written to %s\n", seed.RunID, len(seed.Selection.Records), cfg.OutDir)
	return nil
}
