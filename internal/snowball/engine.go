// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/review-engine/internal/artifact"
	"github.com/pdiddy/review-engine/internal/dedup"
	"github.com/pdiddy/review-engine/internal/metrics"
	"github.com/pdiddy/review-engine/internal/registry"
	"github.com/pdiddy/review-engine/internal/search"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Engine runs the seed review and the snowball rounds after it. Rounds are
// strictly sequential: round n expands only the records first included in
// round n-1.
type Engine struct {
	Expander *Expander
	Reviewer Reviewer
	Registry *registry.Registry

	// Store, when set, persists the registry after every commit.
	Store registry.Store

	// Cutoff hard-filters expanded candidates like the seed set.
	Cutoff *types.CutoffRecord

	RunID string

	// OutDir receives one round artifact per committed round. Empty skips
	// writing.
	OutDir string

	Log     *zap.Logger
	Out     io.Writer
	Metrics *metrics.Recorder
}

// Run reviews seeds as round 0 and then runs snowball rounds up to and
// including rounds. If the registry already holds committed rounds the run
// resumes after the last one and seeds are ignored. It stops early when a
// round includes nothing.
func (e *Engine) Run(ctx context.Context, seeds []types.CandidateRecord, rounds int) ([]types.RoundMeta, error) {
	log := e.logger()
	var metas []types.RoundMeta

	start := e.Registry.LastRound() + 1
	var included []types.CandidateRecord
	if start == 0 {
		r := NewRound(0, seeds)
		if err := e.RunRound(ctx, r); err != nil {
			return metas, err
		}
		metas = append(metas, r.Meta)
		included = e.includedRecords(r)
		start = 1
	} else {
		for _, entry := range e.Registry.IncludedIn(start - 1) {
			included = append(included, registry.EntryRecord(entry))
		}
		log.Info("resuming snowball", zap.Int("from_round", start), zap.Int("included", len(included)))
		e.printf("resuming at round %d with %d included papers\n", start, len(included))
	}

	for n := start; n <= rounds; n++ {
		if len(included) == 0 {
			log.Info("no included papers to expand", zap.Int("round", n))
			e.printf("round %d: nothing to expand, stopping\n", n)
			break
		}
		r := NewRound(n, included)
		if err := e.RunRound(ctx, r); err != nil {
			return metas, err
		}
		metas = append(metas, r.Meta)
		included = e.includedRecords(r)
	}
	return metas, nil
}

// RunRound drives r from seeded to committed. Round 0 reviews its seeds
// directly; later rounds expand them through the citation graph first.
// Nothing is committed if ctx is cancelled before the commit step.
func (e *Engine) RunRound(ctx context.Context, r *Round) error {
	log := e.logger()
	started := time.Now()

	if r.Index == 0 {
		r.Raw = r.Seeds
	} else {
		raw, errs, err := e.Expander.ExpandRound(ctx, r.Seeds, r.Index)
		if err != nil {
			return fmt.Errorf("expanding round %d: %w", r.Index, err)
		}
		r.Raw, r.Errors = raw, errs
	}
	if err := r.advance(Expanded); err != nil {
		return err
	}
	e.Metrics.AddCandidates("expanded", len(r.Raw))

	r.Filtered, _ = search.Filter(r.Raw, e.Cutoff)
	r.Unique, r.Removed = dedup.Dedupe(r.Filtered, e.Registry)
	if err := r.advance(Deduped); err != nil {
		return err
	}

	if len(r.Unique) > 0 {
		decisions, err := e.Reviewer.Review(ctx, r.Index, r.Unique)
		if err != nil {
			return fmt.Errorf("reviewing round %d: %w", r.Index, err)
		}
		r.Decisions = decisions
	}
	if err := r.advance(Reviewed); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	meta, err := e.Registry.Register(r.Unique, r.Decisions, r.Index)
	if err != nil {
		return fmt.Errorf("committing round %d: %w", r.Index, err)
	}
	meta.SeedCount = len(r.Seeds)
	meta.RawCount = len(r.Raw)
	meta.FilteredCount = len(r.Filtered)
	meta.DedupRemovedBy = r.Removed
	r.Meta = meta
	if err := r.advance(Committed); err != nil {
		return err
	}

	if e.Store != nil {
		if err := e.Store.Save(ctx, e.Registry); err != nil {
			return fmt.Errorf("saving registry after round %d: %w", r.Index, err)
		}
	}
	if err := e.writeRound(r); err != nil {
		return err
	}

	e.Metrics.Round(meta, e.Registry.Counts(), time.Since(started).Seconds())
	log.Info("round committed",
		zap.Int("round", r.Index),
		zap.Int("raw", meta.RawCount),
		zap.Int("filtered", meta.FilteredCount),
		zap.Int("duplicates", dedup.Total(meta.DedupRemovedBy)),
		zap.Int("for_review", meta.ForReviewCount),
		zap.Int("included", meta.ReviewOutcome.Include),
		zap.Int("included_total", meta.IncludedTotal))
	e.printf("round %d: %d raw, %d after cutoff, %d duplicates, %d reviewed, %d included (total %d)\n",
		r.Index, meta.RawCount, meta.FilteredCount, dedup.Total(meta.DedupRemovedBy),
		meta.ForReviewCount, meta.ReviewOutcome.Include, meta.IncludedTotal)
	for _, msg := range r.Errors {
		e.printf("warning: %s\n", msg)
	}
	return nil
}

// includedRecords returns the records of r that the commit registered as
// new includes, in review order.
func (e *Engine) includedRecords(r *Round) []types.CandidateRecord {
	var out []types.CandidateRecord
	for _, rec := range r.Unique {
		entry, ok := e.Registry.Match(rec)
		if ok && entry.Status == types.StatusInclude && entry.FirstRound == r.Index {
			out = append(out, rec)
		}
	}
	return out
}

func (e *Engine) writeRound(r *Round) error {
	if e.OutDir == "" {
		return nil
	}
	art := types.RoundArtifact{
		SchemaVersion: types.SchemaVersion,
		RunID:         e.RunID,
		RoundMeta:     r.Meta,
		Included:      []string{},
		Errors:        append([]string{}, r.Errors...),
	}
	for _, rec := range e.includedRecords(r) {
		art.Included = append(art.Included, rec.ID)
	}
	if err := artifact.Write(filepath.Join(e.OutDir, artifact.RoundFile(r.Index)), art); err != nil {
		return fmt.Errorf("writing round %d record: %w", r.Index, err)
	}
	return nil
}

func (e *Engine) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Engine) printf(format string, args ...any) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}
