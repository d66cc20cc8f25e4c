// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/llmcli"
	"github.com/pdiddy/review-engine/internal/pipeline"
	"github.com/pdiddy/review-engine/internal/snowball"
	"github.com/pdiddy/review-engine/pkg/types"
)

var snowballCmd = &cobra.Command{
	Use:   "snowball",
	Short: "Review the seed set and follow citations round by round",
	Long: `Snowball loads the seed set written by "seed" and reviews it as round 0.
Each later round fetches the papers citing and cited by every paper first
included in the previous round, drops those past the cutoff and those
already in the registry, and sends the rest to the reviewer.

Decisions come from --reviewer-cmd, which reads a prompt on stdin and
prints {"decisions": [...]} JSON, or from YAML worksheets in --decisions:
the first run of a round writes the worksheet, and a re-run after editing
it commits the round. An existing registry resumes after its last round.`,
	Args: cobra.NoArgs,
	RunE: runSnowball,
}

func init() {
	fs := snowballCmd.Flags()
	fs.Int("rounds", defaults.Rounds, "snowball rounds after the seed review")
	fs.Int("expand-workers", defaults.ExpandWorkers, "concurrent citation lookups")
	fs.String("graph", defaults.Source.Graph, "citation graph: openalex or semantic_scholar")
	fs.String("s2-api-key", "", "Semantic Scholar API key (default: .secrets/semantic-scholar-api-key)")
	fs.String("reviewer-cmd", "", "command that reviews candidate papers")
	fs.String("decisions", "", "directory of YAML decision worksheets (default: <out-dir>/decisions)")
	fs.String("criteria", "", "inclusion criteria passed to the reviewer command")
	fs.Int("review-batch", defaults.Snowball.ReviewBatch, "papers per reviewer call")
	fs.String("registry-backend", defaults.Snowball.RegistryBackend, "registry storage: json or sqlite")
	fs.Duration("timeout", defaults.Source.Timeout, "HTTP request timeout")
	fs.Int("max-retries", defaults.Source.MaxRetries, "retries on transient HTTP errors")
	fs.Float64("rps", defaults.Source.RequestsPerSecond, "requests per second per API (0 disables pacing)")
	fs.String("email", "", "contact email sent to OpenAlex (default: .secrets/openalex-email)")

	rootCmd.AddCommand(snowballCmd)
}

func runSnowball(cmd *cobra.Command, args []string) error {
	seed, err := pipeline.Load(viper.GetString("out-dir"))
	if err != nil {
		return fmt.Errorf("loading seed set (run seed first): %w", err)
	}
	cfg, err := runConfig(seed.Topic)
	if err != nil {
		return err
	}

	g, err := newGraph(cfg.Source)
	if err != nil {
		return err
	}
	reviewer, err := newReviewer(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Snowball.RegistryBackend, cfg.OutDir)
	if err != nil {
		return err
	}
	defer store.Close()
	reg, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}

	eng := &snowball.Engine{
		Expander: &snowball.Expander{Graph: g, Workers: cfg.ExpandWorkers, Log: logger, Metrics: recorder},
		Reviewer: reviewer,
		Registry: reg,
		Store:    store,
		Cutoff:   seed.Cutoff,
		RunID:    seed.RunID,
		OutDir:   cfg.OutDir,
		Log:      logger,
		Out:      os.Stdout,
		Metrics:  recorder,
	}
	metas, err := eng.Run(cmd.Context(), seed.Selection.Records, cfg.Rounds)
	if errors.Is(err, snowball.ErrAwaitingDecisions) {
		fmt.Println(err)
		return nil
	}
	if err != nil {
		return err
	}
	counts := reg.Counts()
	fmt.Printf("%d rounds committed; registry: %d included, %d excluded, %d hard excluded, %d pending\n",
		len(metas), counts[types.StatusInclude], counts[types.StatusExclude],
		counts[types.StatusHardExclude], counts[types.StatusPending])
	return nil
}

// newReviewer returns the command reviewer when --reviewer-cmd is set and
// the worksheet reviewer otherwise.
func newReviewer(cfg types.RunConfig) (snowball.Reviewer, error) {
	sb := cfg.Snowball
	if sb.ReviewerCmd == "" {
		dir := sb.DecisionsDir
		if dir == "" {
			dir = filepath.Join(cfg.OutDir, "decisions")
		}
		return &snowball.FileReviewer{Dir: dir}, nil
	}
	c, err := llmcli.ParseCommand(sb.ReviewerCmd)
	if err != nil {
		return nil, fmt.Errorf("parsing --reviewer-cmd: %w", err)
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return &llmcli.CommandReviewer{
		Cmd:       c,
		Topic:     cfg.Topic,
		Criteria:  sb.Criteria,
		BatchSize: sb.ReviewBatch,
		Log:       logger,
	}, nil
}
