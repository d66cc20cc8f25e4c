// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph implements citation-graph backends for snowball expansion.
// Each backend returns the works citing a record (forward) and the works a
// record cites (backward) as candidate records.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/review-engine/internal/openalex"
	"github.com/pdiddy/review-engine/pkg/types"
)

// DefaultMaxResults caps the records returned by one lookup.
const DefaultMaxResults = 100

// openAlexBatch is the number of ids joined into one openalex_id filter.
const openAlexBatch = 50

// OpenAlexGraph walks citations through the OpenAlex Works API.
type OpenAlexGraph struct {
	Client     *openalex.Client
	MaxResults int
}

// Name returns the graph identifier.
func (g *OpenAlexGraph) Name() string { return "openalex" }

// Citing returns the works that cite rec, ordered by id.
func (g *OpenAlexGraph) Citing(ctx context.Context, rec types.CandidateRecord) ([]types.CandidateRecord, error) {
	w, err := g.resolve(ctx, rec)
	if err != nil || w == nil {
		return nil, err
	}
	works, err := g.Client.Filter(ctx, "cites:"+w.Record().OpenAlexID, g.max())
	if err != nil {
		return nil, fmt.Errorf("citing %s: %w", rec.ID, err)
	}
	out := make([]types.CandidateRecord, 0, len(works))
	for _, cw := range works {
		if r := cw.Record(); r.ID != "" {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// References returns the works rec cites, in the order OpenAlex lists them.
func (g *OpenAlexGraph) References(ctx context.Context, rec types.CandidateRecord) ([]types.CandidateRecord, error) {
	w, err := g.resolve(ctx, rec)
	if err != nil || w == nil {
		return nil, err
	}
	refs := w.References()
	if len(refs) > g.max() {
		refs = refs[:g.max()]
	}

	byID := make(map[string]types.CandidateRecord, len(refs))
	for start := 0; start < len(refs); start += openAlexBatch {
		end := min(start+openAlexBatch, len(refs))
		works, err := g.Client.Filter(ctx, "openalex_id:"+strings.Join(refs[start:end], "|"), end-start)
		if err != nil {
			return nil, fmt.Errorf("references of %s: %w", rec.ID, err)
		}
		for _, rw := range works {
			r := rw.Record()
			byID[r.ID] = r
		}
	}

	out := make([]types.CandidateRecord, 0, len(refs))
	for _, id := range refs {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// resolve finds the OpenAlex work for rec by OpenAlex id, then DOI, then
// the arXiv DOI derived from an arXiv id. It returns (nil, nil) when OpenAlex
// does not know the record.
func (g *OpenAlexGraph) resolve(ctx context.Context, rec types.CandidateRecord) (*openalex.Work, error) {
	var keys []string
	switch {
	case rec.OpenAlexID != "":
		keys = append(keys, rec.OpenAlexID)
	case rec.DOI != "":
		keys = append(keys, rec.DOI)
	}
	if rec.Source == "arxiv" {
		keys = append(keys, "10.48550/arXiv."+rec.ID)
	}
	for _, k := range keys {
		w, err := g.Client.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("resolving %s in OpenAlex: %w", rec.ID, err)
		}
		if w != nil {
			return w, nil
		}
	}
	return nil, nil
}

func (g *OpenAlexGraph) max() int {
	if g.MaxResults > 0 {
		return g.MaxResults
	}
	return DefaultMaxResults
}
