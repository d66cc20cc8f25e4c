// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-engine/internal/graph"
	"github.com/pdiddy/review-engine/internal/llmcli"
	"github.com/pdiddy/review-engine/internal/registry"
	"github.com/pdiddy/review-engine/internal/search"
	"github.com/pdiddy/review-engine/internal/secrets"
	"github.com/pdiddy/review-engine/internal/snowball"
	"github.com/pdiddy/review-engine/pkg/types"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	loadedSecrets = nil
	t.Cleanup(func() {
		viper.Reset()
		loadedSecrets = nil
	})
}

func TestRunConfigDefaults(t *testing.T) {
	resetViper(t)
	cfg, err := runConfig("  graph learning ")
	require.NoError(t, err)
	want := types.DefaultRunConfig("graph learning")
	assert.Equal(t, want.PhraseCount, cfg.PhraseCount)
	assert.Equal(t, want.DateField, cfg.DateField)
	assert.Equal(t, "graph learning", cfg.Topic)
	assert.Equal(t, "review-engine/"+version, cfg.Source.UserAgent)
}

func TestRunConfigOverrides(t *testing.T) {
	resetViper(t)
	loadedSecrets = secrets.Secrets{secrets.OpenAlexEmail: "me@example.org"}
	viper.Set("date-field", "updated")
	viper.Set("phrases", 7)
	viper.Set("max-total", 0)
	viper.Set("rounds", 0)
	viper.Set("strict-dates", true)
	viper.Set("source", "openalex")
	viper.Set("timeout", "5s")
	viper.Set("registry-backend", "sqlite")
	viper.Set("out-dir", "/tmp/run")

	cfg, err := runConfig("topic")
	require.NoError(t, err)
	assert.Equal(t, types.DateUpdated, cfg.DateField)
	assert.Equal(t, 7, cfg.PhraseCount)
	assert.Equal(t, 0, cfg.MaxTotal)
	assert.Equal(t, 0, cfg.Rounds)
	assert.True(t, cfg.StrictDates)
	assert.Equal(t, "openalex", cfg.Source.Backend)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "me@example.org", cfg.Source.Email)
	assert.Equal(t, "sqlite", cfg.Snowball.RegistryBackend)
	assert.Equal(t, "/tmp/run", cfg.OutDir)
}

func TestRunConfigRejectsBadValues(t *testing.T) {
	for key, val := range map[string]any{
		"date-field":       "accepted",
		"blacklist-mode":   "loose",
		"phrases":          0,
		"registry-backend": "postgres",
	} {
		t.Run(key, func(t *testing.T) {
			resetViper(t)
			viper.Set(key, val)
			_, err := runConfig("topic")
			assert.Error(t, err)
		})
	}
	resetViper(t)
	_, err := runConfig("   ")
	assert.Error(t, err)
}

func TestNewSourceAndGraph(t *testing.T) {
	cfg := types.DefaultRunConfig("t").Source

	src, err := newSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &search.ArxivSource{}, src)
	cfg.Backend = "openalex"
	src, err = newSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openalex", src.Name())
	cfg.Backend = "scopus"
	_, err = newSource(cfg)
	assert.Error(t, err)

	g, err := newGraph(cfg)
	require.NoError(t, err)
	assert.IsType(t, &graph.OpenAlexGraph{}, g)
	cfg.Graph = "semantic_scholar"
	cfg.SemanticScholarAPIKey = "k"
	g, err = newGraph(cfg)
	require.NoError(t, err)
	assert.Equal(t, "k", g.(*graph.SemanticScholarGraph).APIKey)
	cfg.Graph = "crossref"
	_, err = newGraph(cfg)
	assert.Error(t, err)
}

func TestNewReviewer(t *testing.T) {
	cfg := types.DefaultRunConfig("t")
	cfg.OutDir = "out"
	r, err := newReviewer(cfg)
	require.NoError(t, err)
	fr, ok := r.(*snowball.FileReviewer)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("out", "decisions"), fr.Dir)

	cfg.Snowball.ReviewerCmd = "definitely-not-a-real-binary-xyz --flag"
	_, err = newReviewer(cfg)
	assert.Error(t, err)

	cfg.Snowball.ReviewerCmd = "sh -c true"
	r, err = newReviewer(cfg)
	require.NoError(t, err)
	cr, ok := r.(*llmcli.CommandReviewer)
	require.True(t, ok)
	assert.Equal(t, 20, cr.BatchSize)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	s, err := openStore("json", dir)
	require.NoError(t, err)
	assert.IsType(t, &registry.JSONStore{}, s)
	require.NoError(t, s.Close())

	s, err = openStore("sqlite", dir)
	require.NoError(t, err)
	assert.IsType(t, registry.Tee{}, s)
	require.NoError(t, s.Close())

	_, err = openStore("postgres", dir)
	assert.Error(t, err)
}

func TestPrintRegistry(t *testing.T) {
	reg := registry.New()
	_, err := reg.Register([]types.CandidateRecord{
		{ID: "a", Title: "Alpha", TitleNormalized: "alpha"},
		{ID: "b", Title: "Beta", TitleNormalized: "beta"},
	}, []types.Decision{{ID: "a", Status: types.StatusInclude}}, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printRegistry(&buf, reg, ""))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Beta")
	assert.Contains(t, out, "2 entries: 1 include, 0 exclude, 0 hard_exclude, 1 pending")

	buf.Reset()
	require.NoError(t, printRegistry(&buf, reg, types.StatusInclude))
	assert.NotContains(t, buf.String(), "Beta")
}
