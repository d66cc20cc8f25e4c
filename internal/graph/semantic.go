// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"encoding/json"
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

// semanticAPIBase is the Semantic Scholar paper endpoint. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper"

const semanticFields = "paperId,title,externalIds,year,publicationDate"

// semanticMaxLimit is the largest page Semantic Scholar serves for
// citation and reference lists.
const semanticMaxLimit = 1000

// SemanticScholarGraph walks citations through the Semantic Scholar Graph
// API. Semantic Scholar reports only a publication date.
type SemanticScholarGraph struct {
	Client     *httputil.Client
	APIKey     string
	MaxResults int
}

// Name returns the graph identifier.
func (g *SemanticScholarGraph) Name() string { return "semantic_scholar" }

// Citing returns the papers citing rec.
func (g *SemanticScholarGraph) Citing(ctx context.Context, rec types.CandidateRecord) ([]types.CandidateRecord, error) {
	return g.edges(ctx, rec, "citations")
}

// References returns the papers rec cites.
func (g *SemanticScholarGraph) References(ctx context.Context, rec types.CandidateRecord) ([]types.CandidateRecord, error) {
	return g.edges(ctx, rec, "references")
}

func (g *SemanticScholarGraph) edges(ctx context.Context, rec types.CandidateRecord, kind string) ([]types.CandidateRecord, error) {
	key := semanticPaperKey(rec)
	if key == "" {
		return nil, fmt.Errorf("record %s has no arXiv id or DOI for Semantic Scholar", rec.ID)
	}
	max := DefaultMaxResults
	if g.MaxResults > 0 {
		max = g.MaxResults
	}
	params := url.Values{
		"fields": {semanticFields},
		"limit":  {strconv.Itoa(min(max, semanticMaxLimit))},
	}
	reqURL := semanticAPIBase + "/" + strings.ReplaceAll(url.PathEscape(key), "%2F", "/") + "/" + kind + "?" + params.Encode()

	var header http.Header
	if g.APIKey != "" {
		header = http.Header{"x-api-key": {g.APIKey}}
	}
	resp, err := g.Client.Get(ctx, reqURL, header)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var er semanticEdgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	out := make([]types.CandidateRecord, 0, len(er.Data))
	for _, e := range er.Data {
		p := e.CitingPaper
		if kind == "references" {
			p = e.CitedPaper
		}
		if r, ok := p.record(); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// semanticPaperKey builds the Semantic Scholar paper id for rec, preferring
// the arXiv id over the DOI.
func semanticPaperKey(rec types.CandidateRecord) string {
	switch {
	case rec.Source == "arxiv":
		return "arXiv:" + rec.ID
	case rec.DOI != "":
		return "DOI:" + rec.DOI
	default:
		return ""
	}
}

// Semantic Scholar API JSON structures.
type semanticEdgeResponse struct {
	Offset int            `json:"offset"`
	Next   int            `json:"next"`
	Data   []semanticEdge `json:"data"`
}

type semanticEdge struct {
	CitingPaper semanticPaper `json:"citingPaper"`
	CitedPaper  semanticPaper `json:"citedPaper"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

// record converts p, identifying it by arXiv id, then DOI, then Semantic
// Scholar paper id. Papers with no id at all are skipped.
func (p semanticPaper) record() (types.CandidateRecord, bool) {
	title := strings.Join(strings.Fields(p.Title), " ")
	r := types.CandidateRecord{
		Title:           title,
		TitleNormalized: normalize.Title(title),
		DOI:             normalize.DOI(p.ExternalIDs.DOI),
		Source:          "semantic_scholar",
	}
	switch {
	case p.ExternalIDs.ArXiv != "":
		r.ID = p.ExternalIDs.ArXiv
	case r.DOI != "":
		r.ID = r.DOI
	case p.PaperID != "":
		r.ID = p.PaperID
	default:
		return r, false
	}
	if t, err := time.Parse(types.DateFmt, p.PublicationDate); err == nil {
		r.PublishedDate = t
	} else if p.Year > 0 {
		r.PublishedDate = time.Date(p.Year, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return r, true
}
