// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/graph"
	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/internal/openalex"
	"github.com/pdiddy/review-engine/internal/search"
	"github.com/pdiddy/review-engine/internal/secrets"
	"github.com/pdiddy/review-engine/internal/snowball"
	"github.com/pdiddy/review-engine/pkg/types"
)

// defaults supplies flag defaults so flags, config file and env agree.
var defaults = types.DefaultRunConfig("")

func addSourceFlags(fs *pflag.FlagSet) {
	fs.String("source", defaults.Source.Backend, "record source: arxiv or openalex")
	fs.String("email", "", "contact email sent to OpenAlex (default: .secrets/openalex-email)")
	fs.Duration("timeout", defaults.Source.Timeout, "HTTP request timeout")
	fs.Int("max-retries", defaults.Source.MaxRetries, "retries on transient HTTP errors")
	fs.Float64("rps", defaults.Source.RequestsPerSecond, "requests per second per API (0 disables pacing)")
}

func addCutoffFlags(fs *pflag.FlagSet) {
	fs.String("date-field", string(defaults.DateField), "date compared against the cutoff: published, updated or submitted")
	fs.String("cutoff-id", "", "use this source id as the cutoff and skip title search")
	fs.String("cutoff-title", "", "search this title for the cutoff instead of the topic")
}

// runConfig assembles the run configuration from bound flags, the config
// file and the environment, in viper's precedence order.
func runConfig(topic string) (types.RunConfig, error) {
	cfg := types.DefaultRunConfig(strings.TrimSpace(topic))

	if v := viper.GetString("date-field"); v != "" {
		df, err := types.ParseDateField(v)
		if err != nil {
			return cfg, err
		}
		cfg.DateField = df
	}
	cfg.CutoffID = viper.GetString("cutoff-id")
	cfg.CutoffTitle = viper.GetString("cutoff-title")
	setInt(&cfg.PhraseCount, "phrases")
	if v := viper.GetString("blacklist-mode"); v != "" {
		cfg.BlacklistMode = types.BlacklistMode(v)
	}
	setInt(&cfg.MaxQueryTokens, "max-query-tokens")
	setInt(&cfg.PerQueryMax, "per-query-max")
	if viper.IsSet("max-total") {
		cfg.MaxTotal = viper.GetInt("max-total")
	}
	setInt(&cfg.QueryWorkers, "query-workers")
	setInt(&cfg.ExpandWorkers, "expand-workers")
	if viper.IsSet("rounds") {
		cfg.Rounds = viper.GetInt("rounds")
	}
	cfg.StrictDates = viper.GetBool("strict-dates")
	if v := viper.GetString("out-dir"); v != "" {
		cfg.OutDir = v
	}

	src := &cfg.Source
	if v := viper.GetString("source"); v != "" {
		src.Backend = v
	}
	if v := viper.GetString("graph"); v != "" {
		src.Graph = v
	}
	if d := viper.GetDuration("timeout"); d > 0 {
		src.Timeout = d
	}
	if viper.IsSet("max-retries") {
		src.MaxRetries = viper.GetInt("max-retries")
	}
	if viper.IsSet("rps") {
		src.RequestsPerSecond = viper.GetFloat64("rps")
	}
	src.UserAgent = "review-engine/" + version
	src.Email = loadedSecrets.Get(secrets.OpenAlexEmail, viper.GetString("email"))
	src.SemanticScholarAPIKey = loadedSecrets.Get(secrets.SemanticScholarAPIKey, viper.GetString("s2-api-key"))

	sb := &cfg.Snowball
	if v := viper.GetString("registry-backend"); v != "" {
		sb.RegistryBackend = v
	}
	sb.ReviewerCmd = viper.GetString("reviewer-cmd")
	sb.DecisionsDir = viper.GetString("decisions")
	sb.Criteria = viper.GetString("criteria")
	setInt(&sb.ReviewBatch, "review-batch")

	return cfg, cfg.Validate()
}

func setInt(dst *int, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetInt(key)
	}
}

// newSource builds the record source named by cfg.Backend.
func newSource(cfg types.SourceConfig) (search.Source, error) {
	client := httputil.NewClient(cfg.HTTPConfig, cfg.RequestsPerSecond)
	switch cfg.Backend {
	case "arxiv":
		return &search.ArxivSource{Client: client}, nil
	case "openalex":
		return &search.OpenAlexSource{Client: &openalex.Client{HTTP: client, Email: cfg.Email}}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want arxiv or openalex)", cfg.Backend)
	}
}

// newGraph builds the citation graph named by cfg.Graph.
func newGraph(cfg types.SourceConfig) (snowball.CitationGraph, error) {
	client := httputil.NewClient(cfg.HTTPConfig, cfg.RequestsPerSecond)
	switch cfg.Graph {
	case "openalex":
		return &graph.OpenAlexGraph{Client: &openalex.Client{HTTP: client, Email: cfg.Email}}, nil
	case "semantic_scholar":
		return &graph.SemanticScholarGraph{Client: client, APIKey: cfg.SemanticScholarAPIKey}, nil
	default:
		return nil, fmt.Errorf("unknown citation graph %q (want openalex or semantic_scholar)", cfg.Graph)
	}
}
