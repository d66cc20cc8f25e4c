package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator for configuration and artifact structs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	return validate.Struct(v)
}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "review-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds transport-level retries on transient HTTP errors
	// (default 5). It never re-runs a query semantically.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SourceConfig holds settings for the record sources and citation graphs.
type SourceConfig struct {
	HTTPConfig `yaml:",inline"`

	// Backend selects the record source: "arxiv" or "openalex".
	Backend string `json:"backend" yaml:"backend" validate:"oneof=arxiv openalex"`

	// Graph selects the citation graph: "openalex" or "semantic_scholar".
	Graph string `json:"graph" yaml:"graph" validate:"oneof=openalex semantic_scholar"`

	// Email is sent to OpenAlex as mailto for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// RequestsPerSecond paces calls to a single API (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
}

// BlacklistMode controls how review-class terms in phrases are handled.
type BlacklistMode string

const (
	// BlacklistClean removes matching spans and keeps the rest of the phrase.
	BlacklistClean BlacklistMode = "clean"

	// BlacklistFail drops any phrase containing a match.
	BlacklistFail BlacklistMode = "fail"
)

// RunConfig is the immutable run context threaded through every component
// call of one topic run.
type RunConfig struct {
	// Topic is the free-text review topic; it doubles as the cutoff title.
	Topic string `json:"topic" yaml:"topic" validate:"required"`

	// DateField is the date compared against the cutoff.
	DateField DateField `json:"date_field" yaml:"date_field" validate:"required,oneof=published updated submitted"`

	// CutoffID bypasses cutoff search and tie-break when set.
	CutoffID string `json:"cutoff_id,omitempty" yaml:"cutoff_id,omitempty"`

	// CutoffTitle replaces Topic as the cutoff search title when set.
	CutoffTitle string `json:"cutoff_title,omitempty" yaml:"cutoff_title,omitempty"`

	// PhraseCount is the number of phrases requested from the generator.
	PhraseCount int `json:"phrase_count" yaml:"phrase_count" validate:"gte=1,lte=100"`

	BlacklistMode BlacklistMode `json:"blacklist_mode" yaml:"blacklist_mode" validate:"oneof=clean fail"`

	// MaxQueryTokens caps tokens per query (default 8).
	MaxQueryTokens int `json:"max_query_tokens" yaml:"max_query_tokens" validate:"gte=1"`

	// PerQueryMax caps results requested per query.
	PerQueryMax int `json:"per_query_max" yaml:"per_query_max" validate:"gte=1"`

	// MaxTotal caps the merged selection set. Zero means unlimited.
	MaxTotal int `json:"max_total" yaml:"max_total" validate:"gte=0"`

	// QueryWorkers bounds concurrent query execution.
	QueryWorkers int `json:"query_workers" yaml:"query_workers" validate:"gte=1"`

	// ExpandWorkers bounds concurrent citation lookups.
	ExpandWorkers int `json:"expand_workers" yaml:"expand_workers" validate:"gte=1"`

	// Rounds is the number of snowball rounds after the seed review.
	Rounds int `json:"rounds" yaml:"rounds" validate:"gte=0"`

	// StrictDates turns a missing candidate date into a fatal error when a
	// cutoff is active.
	StrictDates bool `json:"strict_dates" yaml:"strict_dates"`

	// OutDir receives the run's artifact files.
	OutDir string `json:"out_dir" yaml:"out_dir" validate:"required"`

	Source SourceConfig `json:"source" yaml:"source"`

	Snowball SnowballConfig `json:"snowball" yaml:"snowball"`
}

// SnowballConfig holds settings for the review rounds.
type SnowballConfig struct {
	// RegistryBackend selects registry storage: "json" or "sqlite".
	RegistryBackend string `json:"registry_backend" yaml:"registry_backend" validate:"oneof=json sqlite"`

	// ReviewerCmd is the external command that screens records. When empty
	// decisions are read from worksheets in DecisionsDir.
	ReviewerCmd string `json:"reviewer_cmd,omitempty" yaml:"reviewer_cmd,omitempty"`

	DecisionsDir string `json:"decisions_dir,omitempty" yaml:"decisions_dir,omitempty"`

	// Criteria is passed to the reviewer command with every batch.
	Criteria string `json:"criteria,omitempty" yaml:"criteria,omitempty"`

	// ReviewBatch is the number of records per reviewer call.
	ReviewBatch int `json:"review_batch" yaml:"review_batch" validate:"gte=0"`
}

// DefaultRunConfig returns a RunConfig with defaults for every optional field.
func DefaultRunConfig(topic string) RunConfig {
	return RunConfig{
		Topic:          topic,
		DateField:      DatePublished,
		PhraseCount:    5,
		BlacklistMode:  BlacklistClean,
		MaxQueryTokens: 8,
		PerQueryMax:    50,
		MaxTotal:       200,
		QueryWorkers:   4,
		ExpandWorkers:  4,
		Rounds:         2,
		OutDir:         "review",
		Source: SourceConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    60 * time.Second,
				UserAgent:  "review-engine/0.1",
				MaxRetries: 5,
			},
			Backend:           "arxiv",
			Graph:             "openalex",
			RequestsPerSecond: 1,
		},
		Snowball: SnowballConfig{
			RegistryBackend: "json",
			ReviewBatch:     20,
		},
	}
}

// Validate reports the first invalid field of the run configuration.
func (c RunConfig) Validate() error {
	if err := Validate(c); err != nil {
		return fmt.Errorf("invalid run configuration: %w", err)
	}
	return nil
}

// CutoffSearchTitle returns the title used for the cutoff search.
func (c RunConfig) CutoffSearchTitle() string {
	if c.CutoffTitle != "" {
		return c.CutoffTitle
	}
	return c.Topic
}
