// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the review-engine pipeline:
// candidate records, cutoff records, queries, selection sets, registry
// entries, run configuration, and the schema-versioned artifact files.
package types

import (
	"fmt"
	"time"
)

// DateField selects which record date is compared against the cutoff.
type DateField string

const (
	DatePublished DateField = "published"
	DateUpdated   DateField = "updated"
	DateSubmitted DateField = "submitted"
)

// ParseDateField validates s. An empty string selects DatePublished.
func ParseDateField(s string) (DateField, error) {
	switch f := DateField(s); f {
	case "":
		return DatePublished, nil
	case DatePublished, DateUpdated, DateSubmitted:
		return f, nil
	default:
		return "", fmt.Errorf("invalid date field %q: want published, updated, or submitted", s)
	}
}

// Phrase is one search phrase produced by the external generator, after
// blacklist and ASCII post-processing.
type Phrase struct {
	Text             string `json:"text" yaml:"text"`
	PassedBlacklist  bool   `json:"passed_blacklist" yaml:"passed_blacklist"`
	PassedASCIICheck bool   `json:"passed_ascii_check" yaml:"passed_ascii_check"`
}

// Query is the boolean query derived from one accepted phrase.
type Query struct {
	// Index is the position of the query in the run's query list.
	Index int `json:"index" yaml:"index"`

	Phrase      string   `json:"phrase" yaml:"phrase"`
	Tokens      []string `json:"tokens" yaml:"tokens"`
	QueryString string   `json:"query" yaml:"query"`

	// Truncated reports whether tokens were dropped to honour the token cap.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// CandidateRecord is a paper returned by a record source or citation graph,
// before filtering.
type CandidateRecord struct {
	// ID is the source identifier (arXiv ID, OpenAlex work ID).
	ID string `json:"id" yaml:"id"`

	Title           string `json:"title" yaml:"title"`
	TitleNormalized string `json:"title_normalized" yaml:"title_normalized"`

	// PublishedDate is the publication date; zero when the source has none.
	PublishedDate time.Time `json:"published_date" yaml:"published_date"`

	// Dates holds the updated and submitted dates when the source reports them.
	Dates map[DateField]time.Time `json:"dates,omitempty" yaml:"dates,omitempty"`

	// OpenAlexID and DOI are identity keys used by deduplication.
	OpenAlexID string `json:"openalex_id,omitempty" yaml:"openalex_id,omitempty"`
	DOI        string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Source names the backend that produced the record (e.g. "arxiv").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// SourceQueryIndex is the query that first produced the record.
	SourceQueryIndex int `json:"source_query_index" yaml:"source_query_index"`

	// SourceQueryIndices lists every query that produced the record. Filled in
	// by the merger.
	SourceQueryIndices []int `json:"source_query_indices,omitempty" yaml:"source_query_indices,omitempty"`
}

// Date returns the record's date for field and whether it is known.
func (r CandidateRecord) Date(field DateField) (time.Time, bool) {
	if field == "" || field == DatePublished {
		if !r.PublishedDate.IsZero() {
			return r.PublishedDate, true
		}
	}
	t, ok := r.Dates[field]
	if !ok || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// SelectionSet is the deduplicated, date-ordered, capped seed set.
type SelectionSet struct {
	Records  []CandidateRecord `json:"records" yaml:"records"`
	MaxTotal int               `json:"max_total" yaml:"max_total"`
}

// IDs returns the record ids in selection order.
func (s SelectionSet) IDs() []string {
	ids := make([]string, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.ID
	}
	return ids
}

// DateFmt is the calendar date layout used in artifacts.
const DateFmt = "2006-01-02"

// FormatDate renders t as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFmt)
}
