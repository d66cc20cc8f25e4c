// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/internal/normalize"
	"github.com/pdiddy/review-engine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivSource queries the arXiv API. arXiv reports a submission date
// (published) and a last-revision date (updated) for every entry.
type ArxivSource struct {
	Client *httputil.Client
}

// Name returns the source identifier.
func (s *ArxivSource) Name() string { return "arxiv" }

// Search runs a boolean query over all arXiv fields.
func (s *ArxivSource) Search(ctx context.Context, q types.Query, opts Options) ([]types.CandidateRecord, error) {
	sq := arxivBooleanQuery(q.QueryString)
	if sq == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	return s.fetch(ctx, url.Values{
		"search_query": {sq},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults(opts, 2000))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	})
}

// SearchTitle runs an exact-phrase title search.
func (s *ArxivSource) SearchTitle(ctx context.Context, title string, opts Options) ([]types.CandidateRecord, error) {
	title = strings.Join(strings.Fields(strings.ReplaceAll(title, `"`, " ")), " ")
	if title == "" {
		return nil, fmt.Errorf("empty arXiv title")
	}
	return s.fetch(ctx, url.Values{
		"search_query": {`ti:"` + title + `"`},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults(opts, 2000))},
	})
}

// Lookup fetches one entry by arXiv id.
func (s *ArxivSource) Lookup(ctx context.Context, id string) (*types.CandidateRecord, error) {
	recs, err := s.fetch(ctx, url.Values{"id_list": {id}})
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].ID == stripArxivVersion(id) {
			return &recs[i], nil
		}
	}
	return nil, nil
}

func (s *ArxivSource) fetch(ctx context.Context, params url.Values) ([]types.CandidateRecord, error) {
	resp, err := s.Client.Get(ctx, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var records []types.CandidateRecord
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		title := strings.Join(strings.Fields(entry.Title), " ")
		r := types.CandidateRecord{
			ID:              arxivID,
			Title:           title,
			TitleNormalized: normalize.Title(title),
			DOI:             normalize.DOI(entry.DOI),
			Source:          "arxiv",
			Dates:           map[types.DateField]time.Time{},
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			r.PublishedDate = t.UTC()
			r.Dates[types.DateSubmitted] = t.UTC()
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Updated); parseErr == nil {
			r.Dates[types.DateUpdated] = t.UTC()
		}
		records = append(records, r)
	}
	return records, nil
}

// arxivBooleanQuery rewrites "(a OR b) AND (c OR d)" into arXiv's field
// syntax, prefixing every bare term with all:.
func arxivBooleanQuery(q string) string {
	fields := strings.Fields(strings.NewReplacer("(", " ( ", ")", " ) ").Replace(q))
	var b strings.Builder
	for _, f := range fields {
		switch f {
		case "(", ")":
			b.WriteString(f)
			continue
		case "AND", "OR", "ANDNOT":
			b.WriteString(" " + f + " ")
			continue
		}
		b.WriteString("all:" + f)
	}
	return strings.TrimSpace(b.String())
}

func maxResults(opts Options, limit int) int {
	n := opts.MaxResults
	if n <= 0 {
		n = 20
	}
	if n > limit {
		n = limit
	}
	return n
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	DOI       string `xml:"http://arxiv.org/schemas/atom doi"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return stripArxivVersion(idURL[idx+len(prefix):])
}

// stripArxivVersion removes a trailing version suffix such as "v2".
func stripArxivVersion(id string) string {
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			return id[:vIdx]
		}
	}
	return id
}
