// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SchemaVersion is the version stamped into every artifact this build writes.
const SchemaVersion = 1

// Cutoff status values recorded in the cutoff artifact.
const (
	CutoffResolved = "resolved"
	CutoffAbsent   = "absent"
	CutoffOverride = "override"
)

// RecordRef is the compact form of a record stored in artifacts.
type RecordRef struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title,omitempty"`
	Date  string `json:"date,omitempty"`
}

// NewRecordRef renders r using its date on field.
func NewRecordRef(r CandidateRecord, field DateField) RecordRef {
	ref := RecordRef{ID: r.ID, Title: r.Title}
	if t, ok := r.Date(field); ok {
		ref.Date = FormatDate(t)
	}
	return ref
}

// CutoffRef is the cutoff paper as stored in artifacts.
type CutoffRef struct {
	ID              string    `json:"id" validate:"required"`
	Title           string    `json:"title"`
	TitleNormalized string    `json:"title_normalized"`
	Date            string    `json:"date"`
	DateField       DateField `json:"date_field" validate:"required"`
}

// CutoffArtifact is the cutoff record file.
type CutoffArtifact struct {
	SchemaVersion       int         `json:"schema_version" validate:"required"`
	RunID               string      `json:"run_id" validate:"required,uuid"`
	TopicInput          string      `json:"topic_input" validate:"required"`
	TopicNormalized     string      `json:"topic_normalized"`
	DateField           DateField   `json:"date_field" validate:"required,oneof=published updated submitted"`
	TieBreak            []string    `json:"tie_break" validate:"required"`
	CutoffStatus        string      `json:"cutoff_status" validate:"required,oneof=resolved absent override"`
	Cutoff              *CutoffRef  `json:"cutoff"`
	CandidatesSameTitle []RecordRef `json:"candidates_same_title" validate:"dive"`
	Errors              []string    `json:"errors"`
}

// DroppedPhrase records a phrase removed by post-processing and why.
type DroppedPhrase struct {
	Phrase string `json:"phrase"`
	Reason string `json:"reason" validate:"required"`
}

// ASCIIReport lists phrases dropped by the ASCII-only gate.
type ASCIIReport struct {
	Dropped []DroppedPhrase `json:"dropped" validate:"dive"`
}

// BlacklistHit is one blacklist match in a raw phrase.
type BlacklistHit struct {
	Phrase string `json:"phrase"`
	Term   string `json:"term"`
}

// BlacklistReport describes the blacklist pass.
type BlacklistReport struct {
	Mode     BlacklistMode   `json:"mode" validate:"required,oneof=clean fail"`
	Patterns []string        `json:"patterns"`
	Hits     []BlacklistHit  `json:"hits"`
	Dropped  []DroppedPhrase `json:"dropped" validate:"dive"`
}

// PhraseArtifact is the phrase-generation record file.
type PhraseArtifact struct {
	SchemaVersion int             `json:"schema_version" validate:"required"`
	RunID         string          `json:"run_id" validate:"required,uuid"`
	TopicInput    string          `json:"topic_input" validate:"required"`
	NRequested    int             `json:"n_requested" validate:"gte=1"`
	PhrasesRaw    []string        `json:"phrases_raw"`
	ASCIIOnly     ASCIIReport     `json:"ascii_only"`
	Blacklist     BlacklistReport `json:"blacklist"`
	PhrasesClean  []string        `json:"phrases_clean"`
	Errors        []string        `json:"errors"`
}

// FilterCounts tallies hard-filter outcomes for one query.
type FilterCounts struct {
	ExcludedCutoff      int `json:"excluded_cutoff"`
	ExcludedAfterCutoff int `json:"excluded_after_cutoff"`
	ExcludedMissingDate int `json:"excluded_missing_date"`
	Kept                int `json:"kept"`
}

// QueryExecution records one query's search call and filtering.
type QueryExecution struct {
	Phrase       string       `json:"phrase"`
	Tokens       []string     `json:"tokens"`
	Query        string       `json:"query"`
	Truncated    bool         `json:"truncated,omitempty"`
	RequestedMax int          `json:"requested_max"`
	RawCount     int          `json:"raw_count"`
	Filtered     FilterCounts `json:"filtered"`
	ResultsKept  []RecordRef  `json:"results_kept" validate:"dive"`
	Error        string       `json:"error,omitempty"`
}

// QueryArtifact is the query-execution record file.
type QueryArtifact struct {
	SchemaVersion int              `json:"schema_version" validate:"required"`
	RunID         string           `json:"run_id" validate:"required,uuid"`
	CutoffRef     string           `json:"cutoff_ref"`
	Queries       []QueryExecution `json:"queries" validate:"dive"`
	Errors        []string         `json:"errors"`
}

// SelectionPolicy documents how the selection set was built.
type SelectionPolicy struct {
	Merge    string `json:"merge" validate:"required"`
	Sort     string `json:"sort" validate:"required"`
	MaxTotal int    `json:"max_total"`
}

// SelectedItem is one record of the selection set.
type SelectedItem struct {
	ID                 string `json:"id" validate:"required"`
	Title              string `json:"title,omitempty"`
	PublishedDate      string `json:"published_date"`
	SourceQueryIndices []int  `json:"source_query_indices"`

	// Identity fields let a later snowball run rebuild the seed records.
	DOI        string `json:"doi,omitempty"`
	OpenAlexID string `json:"openalex_id,omitempty"`
	Source     string `json:"source,omitempty"`

	// Dates holds the record's other dates, keyed by field.
	Dates map[DateField]string `json:"dates,omitempty"`
}

// SelectionArtifact is the selection record file.
type SelectionArtifact struct {
	SchemaVersion   int             `json:"schema_version" validate:"required"`
	RunID           string          `json:"run_id" validate:"required,uuid"`
	CutoffRef       string          `json:"cutoff_ref"`
	SelectionPolicy SelectionPolicy `json:"selection_policy"`
	Selected        []SelectedItem  `json:"selected" validate:"dive"`
}

// RoundArtifact is the per-round metadata file.
type RoundArtifact struct {
	SchemaVersion int    `json:"schema_version" validate:"required"`
	RunID         string `json:"run_id" validate:"required,uuid"`
	RoundMeta
	Included []string `json:"included"`
	Errors   []string `json:"errors"`
}

// RegistryArtifact is the registry file.
type RegistryArtifact struct {
	Version   int             `json:"version" validate:"required"`
	Entries   []RegistryEntry `json:"entries" validate:"dive"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ArtifactVersion methods report the schema version an artifact was written
// with, for readers that reject unsupported versions.
func (a CutoffArtifact) ArtifactVersion() int    { return a.SchemaVersion }
func (a PhraseArtifact) ArtifactVersion() int    { return a.SchemaVersion }
func (a QueryArtifact) ArtifactVersion() int     { return a.SchemaVersion }
func (a SelectionArtifact) ArtifactVersion() int { return a.SchemaVersion }
func (a RoundArtifact) ArtifactVersion() int     { return a.SchemaVersion }
func (a RegistryArtifact) ArtifactVersion() int  { return a.Version }
