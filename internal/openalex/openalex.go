// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openalex is a small client for the OpenAlex Works API, shared by
// the OpenAlex record source and the OpenAlex citation graph.
package openalex

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

// APIBase is the OpenAlex works endpoint. Declared as a var so tests can
// substitute an httptest server.
var APIBase = "https://api.openalex.org/works"

// MaxPerPage is the largest page size OpenAlex accepts.
const MaxPerPage = 200

// selectFields limits responses to the fields this package decodes.
const selectFields = "id,doi,title,display_name,publication_date,publication_year,updated_date,referenced_works"

// Client queries the Works API.
type Client struct {
	HTTP *httputil.Client

	// Email is sent as mailto for polite pool access.
	Email string
}

// Work is the subset of an OpenAlex work record this package uses.
type Work struct {
	ID              string   `json:"id"`
	DOI             string   `json:"doi"`
	Title           string   `json:"title"`
	DisplayName     string   `json:"display_name"`
	PublicationDate string   `json:"publication_date"`
	PublicationYear int      `json:"publication_year"`
	UpdatedDate     string   `json:"updated_date"`
	ReferencedWorks []string `json:"referenced_works"`
}

type listResponse struct {
	Meta struct {
		Count   int `json:"count"`
		PerPage int `json:"per_page"`
		Page    int `json:"page"`
	} `json:"meta"`
	Results []Work `json:"results"`
}

// Search runs a full-text search; OpenAlex accepts AND/OR/NOT and
// parentheses in the search string.
func (c *Client) Search(ctx context.Context, search string, max int) ([]Work, error) {
	return c.list(ctx, url.Values{"search": {search}}, max)
}

// Filter lists works matching an OpenAlex filter expression such as
// "title.search:foo" or "cites:W123".
func (c *Client) Filter(ctx context.Context, filter string, max int) ([]Work, error) {
	return c.list(ctx, url.Values{"filter": {filter}}, max)
}

// Get fetches one work by OpenAlex id or DOI. It returns (nil, nil) on 404.
func (c *Client) Get(ctx context.Context, id string) (*Work, error) {
	key := id
	if doi := normalize.DOI(id); doi != "" {
		key = "doi:" + doi
	} else if oa := normalize.OpenAlexID(id); oa != "" {
		key = oa
	}
	params := url.Values{"select": {selectFields}}
	c.addMailto(params)

	resp, err := c.HTTP.Get(ctx, APIBase+"/"+strings.ReplaceAll(url.PathEscape(key), "%2F", "/")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}
	var w Work
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return &w, nil
}

func (c *Client) list(ctx context.Context, params url.Values, max int) ([]Work, error) {
	if max <= 0 {
		max = 20
	}
	perPage := min(max, MaxPerPage)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("select", selectFields)
	c.addMailto(params)

	var works []Work
	for page := 1; len(works) < max; page++ {
		params.Set("page", strconv.Itoa(page))
		batch, err := c.page(ctx, params)
		if err != nil {
			return nil, err
		}
		works = append(works, batch...)
		if len(batch) < perPage {
			break
		}
	}
	if len(works) > max {
		works = works[:max]
	}
	return works, nil
}

func (c *Client) page(ctx context.Context, params url.Values) ([]Work, error) {
	resp, err := c.HTTP.Get(ctx, APIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}
	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return lr.Results, nil
}

func (c *Client) addMailto(params url.Values) {
	if c.Email != "" {
		params.Set("mailto", c.Email)
	}
}

// Record converts a work into a candidate record keyed by its OpenAlex id.
func (w Work) Record() types.CandidateRecord {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}
	title = strings.Join(strings.Fields(title), " ")
	oa := normalize.OpenAlexID(w.ID)
	r := types.CandidateRecord{
		ID:              oa,
		Title:           title,
		TitleNormalized: normalize.Title(title),
		OpenAlexID:      oa,
		DOI:             normalize.DOI(w.DOI),
		Source:          "openalex",
		Dates:           map[types.DateField]time.Time{},
	}
	if t, ok := ParseDate(w.PublicationDate); ok {
		r.PublishedDate = t
	} else if w.PublicationYear > 0 {
		r.PublishedDate = time.Date(w.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if t, ok := ParseDate(w.UpdatedDate); ok {
		r.Dates[types.DateUpdated] = t
	}
	return r
}

// References returns the canonical ids of the works w cites.
func (w Work) References() []string {
	ids := make([]string, 0, len(w.ReferencedWorks))
	for _, ref := range w.ReferencedWorks {
		if id := normalize.OpenAlexID(ref); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseDate parses the date formats OpenAlex emits, in UTC.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
