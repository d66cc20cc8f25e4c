// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the seed stage of a review: resolve the cutoff,
// generate phrases, build and execute queries, and write the selection
// set. Every step writes its record into the run's output directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/review-engine/internal/artifact"
	"github.com/pdiddy/review-engine/internal/cutoff"
	"github.com/pdiddy/review-engine/internal/logging"
	"github.com/pdiddy/review-engine/internal/metrics"
	"github.com/pdiddy/review-engine/internal/normalize"
	"github.com/pdiddy/review-engine/internal/phrase"
	"github.com/pdiddy/review-engine/internal/query"
	"github.com/pdiddy/review-engine/internal/search"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Seeder runs the seed stage against one record source.
type Seeder struct {
	Source    search.Source
	Generator phrase.Generator

	// RunID stamps every artifact. A new UUID is generated when empty.
	RunID string

	Log     *zap.Logger
	Out     io.Writer
	Metrics *metrics.Recorder
}

// Seed is the outcome of the seed stage.
type Seed struct {
	RunID     string
	Topic     string
	Cutoff    *types.CutoffRecord
	Phrases   phrase.Result
	Queries   []types.Query
	Execution search.Execution
	Selection types.SelectionSet
}

// Run executes the seed stage for cfg. The cutoff is resolved exactly once
// and the generator is called exactly once. On failure the records of the
// steps that completed remain on disk.
func (s *Seeder) Run(ctx context.Context, cfg types.RunConfig) (*Seed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.OrNop(s.Log)
	seed := &Seed{RunID: s.runID(), Topic: cfg.Topic}
	log = log.With(zap.String("run_id", seed.RunID))

	c, err := s.ResolveCutoff(ctx, cfg, seed.RunID)
	if err != nil {
		return nil, err
	}
	seed.Cutoff = c

	res, err := phrase.Run(ctx, s.Generator, cfg.Topic, cfg.PhraseCount, cfg.BlacklistMode)
	seed.Phrases = res
	var phraseErrs []string
	if err != nil {
		phraseErrs = []string{err.Error()}
	}
	if werr := artifact.Write(filepath.Join(cfg.OutDir, artifact.PhrasesFile), res.Record(seed.RunID, phraseErrs)); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	s.printf("phrases: %d accepted of %d generated\n", len(res.Accepted), len(res.Raw))
	for _, d := range append(res.BlacklistDropped, res.ASCIIDropped...) {
		s.printf("  dropped %q (%s)\n", d.Phrase, d.Reason)
	}

	seed.Queries = query.BuildAll(res.Texts(), cfg.MaxQueryTokens)
	exec, err := search.Execute(ctx, s.Source, seed.Queries, c, search.Config{
		PerQueryMax: cfg.PerQueryMax,
		MaxTotal:    cfg.MaxTotal,
		Workers:     cfg.QueryWorkers,
		Strict:      cfg.StrictDates,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("executing queries: %w", err)
	}
	seed.Execution = exec
	seed.Selection = exec.Selection

	if err := artifact.Write(filepath.Join(cfg.OutDir, artifact.QueriesFile), exec.Record(seed.RunID, c, cfg.PerQueryMax)); err != nil {
		return nil, err
	}
	if err := artifact.Write(filepath.Join(cfg.OutDir, artifact.SelectionFile), search.SelectionRecord(seed.RunID, c, exec.Selection)); err != nil {
		return nil, err
	}

	raw, kept := 0, 0
	for _, r := range exec.Results {
		s.Metrics.Query(r.Err)
		raw += len(r.Raw)
		kept += len(r.Kept)
	}
	s.Metrics.AddCandidates("raw", raw)
	s.Metrics.AddCandidates("filtered", kept)
	s.Metrics.AddCandidates("selected", len(exec.Selection.Records))

	s.printf("queries: %d executed, %d failed, %d raw results, %d after cutoff\n",
		len(exec.Results)-len(exec.Errors), len(exec.Errors), raw, kept)
	s.printf("selection: %d papers\n", len(exec.Selection.Records))
	for _, e := range exec.Errors {
		s.printf("warning: %s\n", e)
	}
	log.Info("seed stage complete",
		zap.Int("queries", len(seed.Queries)),
		zap.Int("raw", raw),
		zap.Int("selected", len(exec.Selection.Records)))
	return seed, nil
}

// ResolveCutoff resolves the cutoff for cfg and writes the cutoff record.
// A nil cutoff with a nil error means no paper matched the title.
func (s *Seeder) ResolveCutoff(ctx context.Context, cfg types.RunConfig, runID string) (*types.CutoffRecord, error) {
	res := &cutoff.Resolver{Source: s.Source, Log: s.Log}
	c, rep, err := res.Resolve(ctx, cfg.Topic, cutoff.Overrides{
		ID:        cfg.CutoffID,
		Title:     cfg.CutoffTitle,
		DateField: cfg.DateField,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving cutoff: %w", err)
	}
	if err := artifact.Write(filepath.Join(cfg.OutDir, artifact.CutoffFile), rep.Record(runID, cfg.Topic, c)); err != nil {
		return nil, err
	}
	if c == nil {
		s.printf("cutoff: none found for %q\n", cfg.CutoffSearchTitle())
	} else {
		s.printf("cutoff: %s %q (%s %s, %s)\n", c.SourceID, c.Title, cfg.DateField, types.FormatDate(c.Date), rep.Status)
	}
	return c, nil
}

// Load reads the cutoff and selection records a previous seed stage wrote
// to dir and rebuilds the seed records from them.
func Load(dir string) (*Seed, error) {
	var ca types.CutoffArtifact
	if err := artifact.Read(filepath.Join(dir, artifact.CutoffFile), &ca); err != nil {
		return nil, err
	}
	var sa types.SelectionArtifact
	if err := artifact.Read(filepath.Join(dir, artifact.SelectionFile), &sa); err != nil {
		return nil, err
	}
	if sa.RunID != ca.RunID {
		return nil, fmt.Errorf("selection run %s does not match cutoff run %s", sa.RunID, ca.RunID)
	}

	seed := &Seed{RunID: ca.RunID, Topic: ca.TopicInput}
	if ca.Cutoff != nil {
		c, err := cutoffFromRef(*ca.Cutoff)
		if err != nil {
			return nil, err
		}
		seed.Cutoff = c
	}
	if sa.CutoffRef != seed.Cutoff.ID() {
		return nil, fmt.Errorf("selection cutoff %q does not match resolved cutoff %q", sa.CutoffRef, seed.Cutoff.ID())
	}

	seed.Selection.MaxTotal = sa.SelectionPolicy.MaxTotal
	for _, it := range sa.Selected {
		r := types.CandidateRecord{
			ID:                 it.ID,
			Title:              it.Title,
			TitleNormalized:    normalize.Title(it.Title),
			SourceQueryIndices: it.SourceQueryIndices,
			DOI:                it.DOI,
			OpenAlexID:         it.OpenAlexID,
			Source:             it.Source,
			Dates:              map[types.DateField]time.Time{},
		}
		if len(it.SourceQueryIndices) > 0 {
			r.SourceQueryIndex = it.SourceQueryIndices[0]
		}
		if it.PublishedDate != "" {
			t, err := time.Parse(types.DateFmt, it.PublishedDate)
			if err != nil {
				return nil, fmt.Errorf("%w: record %s: bad published_date %q", artifact.ErrSchema, it.ID, it.PublishedDate)
			}
			r.PublishedDate = t
		}
		for f, d := range it.Dates {
			t, err := time.Parse(types.DateFmt, d)
			if err != nil {
				return nil, fmt.Errorf("%w: record %s: bad %s date %q", artifact.ErrSchema, it.ID, f, d)
			}
			r.Dates[f] = t
		}
		seed.Selection.Records = append(seed.Selection.Records, r)
	}
	return seed, nil
}

func cutoffFromRef(ref types.CutoffRef) (*types.CutoffRecord, error) {
	c := &types.CutoffRecord{
		SourceID:        ref.ID,
		Title:           ref.Title,
		TitleNormalized: ref.TitleNormalized,
		DateField:       ref.DateField,
	}
	if ref.Date != "" {
		t, err := time.Parse(types.DateFmt, ref.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: cutoff %s: bad date %q", artifact.ErrSchema, ref.ID, ref.Date)
		}
		c.Date = t
	}
	return c, nil
}

// IsCancelled reports whether err comes from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Seeder) runID() string {
	if s.RunID != "" {
		return s.RunID
	}
	return uuid.NewString()
}

func (s *Seeder) printf(format string, args ...any) {
	if s.Out != nil {
		fmt.Fprintf(s.Out, format, args...)
	}
}
