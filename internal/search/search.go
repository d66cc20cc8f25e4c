// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search executes boolean queries against a bibliographic record
// source, hard-filters the candidates against the cutoff, and merges them
// into the seed selection set.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Source searches a single bibliographic API. Each backend (arXiv, OpenAlex)
// implements this interface.
type Source interface {
	Name() string

	// Search runs one boolean query.
	Search(ctx context.Context, q types.Query, opts Options) ([]types.CandidateRecord, error)

	// SearchTitle runs a title-field search, used to find the cutoff paper.
	SearchTitle(ctx context.Context, title string, opts Options) ([]types.CandidateRecord, error)

	// Lookup fetches one record by source id. It returns (nil, nil) when the
	// id does not exist.
	Lookup(ctx context.Context, id string) (*types.CandidateRecord, error)
}

// Options holds per-call search parameters.
type Options struct {
	// MaxResults caps the records requested from the API.
	MaxResults int
}

// Config controls one execution of the query fan-out.
type Config struct {
	PerQueryMax int
	MaxTotal    int
	Workers     int

	// Strict makes a missing candidate date fatal while a cutoff is active.
	Strict bool
}

// QueryResult is the outcome of one query.
type QueryResult struct {
	Query types.Query
	Raw   []types.CandidateRecord
	Kept  []types.CandidateRecord
	Stats types.FilterCounts
	Err   error
}

// Execution holds every query outcome and the merged selection set.
type Execution struct {
	Results   []QueryResult
	Selection types.SelectionSet
	Errors    []string
}

// Execute runs every query against src with at most cfg.Workers calls in
// flight. A failing query is recorded and contributes no candidates. Filtering
// and merging start only after every call has returned. If ctx is cancelled
// the stage is discarded and ctx.Err() is returned.
func Execute(ctx context.Context, src Source, queries []types.Query, cutoff *types.CutoffRecord, cfg Config, log *zap.Logger) (Execution, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(queries) == 0 {
		return Execution{}, fmt.Errorf("no queries to execute")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]QueryResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, q := range queries {
		results[i].Query = q
		if q.QueryString == "" {
			results[i].Err = errors.New("empty query string")
			continue
		}
		g.Go(func() error {
			raw, err := src.Search(gctx, q, Options{MaxResults: cfg.PerQueryMax})
			if err != nil {
				results[i].Err = err
				return nil
			}
			for j := range raw {
				raw[j].SourceQueryIndex = q.Index
			}
			results[i].Raw = raw
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Execution{}, err
	}

	var exec Execution
	kept := make([][]types.CandidateRecord, 0, len(results))
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			msg := fmt.Sprintf("query %d %q: %v", r.Query.Index, r.Query.QueryString, r.Err)
			exec.Errors = append(exec.Errors, msg)
			log.Warn("query failed",
				zap.Int("query_index", r.Query.Index),
				zap.String("query", r.Query.QueryString),
				zap.String("source", src.Name()),
				zap.Error(r.Err))
			continue
		}
		if cfg.Strict && cutoff != nil {
			if id, missing := firstMissingDate(r.Raw, cutoff); missing {
				return Execution{}, fmt.Errorf("%w: record %s has no %s date", ErrMissingDate, id, cutoff.DateField)
			}
		}
		r.Kept, r.Stats = Filter(r.Raw, cutoff)
		kept = append(kept, r.Kept)
		log.Debug("query executed",
			zap.Int("query_index", r.Query.Index),
			zap.Int("raw", len(r.Raw)),
			zap.Int("kept", r.Stats.Kept))
	}

	exec.Results = results
	exec.Selection = Merge(kept, cfg.MaxTotal)
	return exec, nil
}

// Record renders the query-execution artifact.
func (e Execution) Record(runID string, cutoff *types.CutoffRecord, requestedMax int) types.QueryArtifact {
	field := types.DatePublished
	if cutoff != nil {
		field = cutoff.DateField
	}
	art := types.QueryArtifact{
		SchemaVersion: types.SchemaVersion,
		RunID:         runID,
		CutoffRef:     cutoff.ID(),
		Queries:       make([]types.QueryExecution, 0, len(e.Results)),
		Errors:        append([]string{}, e.Errors...),
	}
	for _, r := range e.Results {
		qe := types.QueryExecution{
			Phrase:       r.Query.Phrase,
			Tokens:       r.Query.Tokens,
			Query:        r.Query.QueryString,
			Truncated:    r.Query.Truncated,
			RequestedMax: requestedMax,
			RawCount:     len(r.Raw),
			Filtered:     r.Stats,
			ResultsKept:  make([]types.RecordRef, 0, len(r.Kept)),
		}
		if r.Err != nil {
			qe.Error = r.Err.Error()
		}
		for _, k := range r.Kept {
			qe.ResultsKept = append(qe.ResultsKept, types.NewRecordRef(k, field))
		}
		art.Queries = append(art.Queries, qe)
	}
	return art
}
