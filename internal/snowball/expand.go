// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package snowball runs citation-graph snowballing: each round expands the
// previous round's included papers through forward and backward citations,
// removes every identity the registry already holds, sends the rest for
// review, and commits the decisions.
package snowball

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/review-engine/internal/metrics"
	"github.com/pdiddy/review-engine/pkg/types"
)

// CitationGraph returns a record's neighbours in the citation graph.
type CitationGraph interface {
	Name() string

	// Citing returns the works that cite rec (forward).
	Citing(ctx context.Context, rec types.CandidateRecord) ([]types.CandidateRecord, error)

	// References returns the works rec cites (backward).
	References(ctx context.Context, rec types.CandidateRecord) ([]types.CandidateRecord, error)
}

// Reviewer decides which candidates of a round are included.
type Reviewer interface {
	Review(ctx context.Context, round int, records []types.CandidateRecord) ([]types.Decision, error)
}

// Direction labels for citation lookups.
const (
	Forward  = "citing"
	Backward = "references"
)

// Expander fans citation lookups out over a bounded worker pool.
type Expander struct {
	Graph   CitationGraph
	Workers int
	Log     *zap.Logger
	Metrics *metrics.Recorder
}

type lookup struct {
	recs []types.CandidateRecord
	err  error
}

// ExpandRound returns the raw neighbours of every included record, ordered
// by included record and then forward before backward. A failing lookup is
// recorded in the returned error list and contributes nothing. Expansion
// never touches the registry. If ctx is cancelled nothing is returned but
// ctx.Err().
func (x *Expander) ExpandRound(ctx context.Context, included []types.CandidateRecord, round int) ([]types.CandidateRecord, []string, error) {
	log := x.Log
	if log == nil {
		log = zap.NewNop()
	}
	workers := x.Workers
	if workers <= 0 {
		workers = 1
	}

	// Slot 2i holds the forward lookup of included[i], 2i+1 the backward one.
	slots := make([]lookup, 2*len(included))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, rec := range included {
		g.Go(func() error {
			recs, err := x.Graph.Citing(gctx, rec)
			slots[2*i] = lookup{recs: recs, err: err}
			return nil
		})
		g.Go(func() error {
			recs, err := x.Graph.References(gctx, rec)
			slots[2*i+1] = lookup{recs: recs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var raw []types.CandidateRecord
	var errs []string
	for j, s := range slots {
		rec := included[j/2]
		dir := Forward
		if j%2 == 1 {
			dir = Backward
		}
		x.Metrics.Lookup(dir, s.err)
		if s.err != nil {
			errs = append(errs, fmt.Sprintf("round %d %s %s: %v", round, dir, rec.ID, s.err))
			log.Warn("citation lookup failed",
				zap.Int("round", round),
				zap.String("direction", dir),
				zap.String("id", rec.ID),
				zap.String("graph", x.Graph.Name()),
				zap.Error(s.err))
			continue
		}
		raw = append(raw, s.recs...)
	}
	log.Debug("round expanded",
		zap.Int("round", round),
		zap.Int("included", len(included)),
		zap.Int("raw", len(raw)))
	return raw, errs, nil
}
