// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/review-engine/internal/openalex"
	"github.com/pdiddy/review-engine/pkg/types"
)

// OpenAlexSource queries the OpenAlex Works API. OpenAlex reports a
// publication date and an updated date; it has no submission date.
type OpenAlexSource struct {
	Client *openalex.Client
}

// Name returns the source identifier.
func (s *OpenAlexSource) Name() string { return "openalex" }

// Search runs the boolean query through OpenAlex full-text search.
func (s *OpenAlexSource) Search(ctx context.Context, q types.Query, opts Options) ([]types.CandidateRecord, error) {
	if q.QueryString == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	works, err := s.Client.Search(ctx, q.QueryString, opts.MaxResults)
	if err != nil {
		return nil, err
	}
	return records(works), nil
}

// SearchTitle searches the title field only.
func (s *OpenAlexSource) SearchTitle(ctx context.Context, title string, opts Options) ([]types.CandidateRecord, error) {
	// Commas separate filter values in OpenAlex filter syntax.
	title = strings.Join(strings.Fields(strings.ReplaceAll(title, ",", " ")), " ")
	if title == "" {
		return nil, fmt.Errorf("empty OpenAlex title")
	}
	works, err := s.Client.Filter(ctx, "title.search:"+title, opts.MaxResults)
	if err != nil {
		return nil, err
	}
	return records(works), nil
}

// Lookup fetches one work by OpenAlex id or DOI.
func (s *OpenAlexSource) Lookup(ctx context.Context, id string) (*types.CandidateRecord, error) {
	w, err := s.Client.Get(ctx, id)
	if err != nil || w == nil {
		return nil, err
	}
	r := w.Record()
	return &r, nil
}

func records(works []openalex.Work) []types.CandidateRecord {
	out := make([]types.CandidateRecord, 0, len(works))
	for _, w := range works {
		r := w.Record()
		if r.ID == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
