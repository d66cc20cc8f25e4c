// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package phrase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-engine/pkg/types"
)

// --- mock generator ---

type mockGenerator struct {
	phrases []string
	err     error
	calls   int
}

func (m *mockGenerator) Generate(_ context.Context, _ string, _ int) ([]string, error) {
	m.calls++
	return m.phrases, m.err
}

func TestProcessASCIIGate(t *testing.T) {
	res := Process([]string{"Überblick Ton", "speech tokens"}, types.BlacklistClean)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "speech tokens", res.Accepted[0].Text)
	assert.True(t, res.Accepted[0].PassedASCIICheck)
	require.Len(t, res.ASCIIDropped, 1)
	assert.Equal(t, types.DroppedPhrase{Phrase: "Überblick Ton", Reason: ReasonNonASCII}, res.ASCIIDropped[0])
}

func TestProcessNoASCIILetter(t *testing.T) {
	res := Process([]string{"2024 - 2025", "42"}, types.BlacklistClean)
	assert.Empty(t, res.Accepted)
	require.Len(t, res.ASCIIDropped, 2)
	assert.Equal(t, ReasonNoASCIILetter, res.ASCIIDropped[0].Reason)
}

func TestProcessBlacklistClean(t *testing.T) {
	res := Process([]string{"a complete survey"}, types.BlacklistClean)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "a complete", res.Accepted[0].Text)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "survey", res.Hits[0].Term)
}

func TestProcessBlacklistMultiWord(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A Systematic Literature Review of speech codecs", "A of speech codecs"},
		{"state-of-the-art neural codecs", "neural codecs"},
		{"Meta-Analysis of token models", "of token models"},
		{"overviews and tutorials on codecs", "and on codecs"},
		{"surveillance audio", "surveillance audio"},
		{"reviewer agreement", "reviewer agreement"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res := Process([]string{tt.in}, types.BlacklistClean)
			require.Len(t, res.Accepted, 1)
			assert.Equal(t, tt.want, res.Accepted[0].Text)
		})
	}
}

func TestProcessBlacklistEmptyAfterScrub(t *testing.T) {
	res := Process([]string{"Survey", "literature review  overview"}, types.BlacklistClean)
	assert.Empty(t, res.Accepted)
	require.Len(t, res.BlacklistDropped, 2)
	for _, d := range res.BlacklistDropped {
		assert.Equal(t, ReasonEmptyAfterScrub, d.Reason)
	}
}

func TestProcessBlacklistFailMode(t *testing.T) {
	res := Process([]string{"a complete survey", "speech tokens"}, types.BlacklistFail)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "speech tokens", res.Accepted[0].Text)
	require.Len(t, res.BlacklistDropped, 1)
	assert.Equal(t, ReasonBlacklistHit, res.BlacklistDropped[0].Reason)
}

func TestProcessCollapsesWhitespace(t *testing.T) {
	res := Process([]string{"  speech \t tokens  "}, types.BlacklistClean)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "speech tokens", res.Accepted[0].Text)
}

func TestRunCallsGeneratorOnce(t *testing.T) {
	gen := &mockGenerator{phrases: []string{"Überblick Ton", "speech tokens"}}
	res, err := Run(context.Background(), gen, "speech tokenizers", 2, types.BlacklistClean)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, []string{"speech tokens"}, res.Texts())
	assert.Equal(t, 2, res.NRequested)
}

func TestRunFailsWhenAllPhrasesDropped(t *testing.T) {
	gen := &mockGenerator{phrases: []string{"survey"}}
	res, err := Run(context.Background(), gen, "topic", 1, types.BlacklistClean)
	require.ErrorIs(t, err, ErrNoPhrases)
	assert.Equal(t, 1, gen.calls, "no retry after an empty result")
	assert.Len(t, res.BlacklistDropped, 1)
}

func TestRunFailsOnEmptyGeneratorOutput(t *testing.T) {
	gen := &mockGenerator{}
	_, err := Run(context.Background(), gen, "topic", 3, types.BlacklistClean)
	require.ErrorIs(t, err, ErrNoPhrases)
	assert.Equal(t, 1, gen.calls)
}

func TestRunGeneratorError(t *testing.T) {
	boom := errors.New("generator unavailable")
	gen := &mockGenerator{err: boom}
	_, err := Run(context.Background(), gen, "topic", 3, types.BlacklistClean)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, gen.calls)
}

func TestRecord(t *testing.T) {
	res := Process([]string{"Überblick Ton", "a complete survey"}, types.BlacklistClean)
	res.Topic = "speech"
	res.NRequested = 2

	rec := res.Record("0b8f6c1e-9f5e-4c53-8f0e-3b1b6d7f2a10", nil)
	assert.Equal(t, types.SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, []string{"a complete"}, rec.PhrasesClean)
	assert.Len(t, rec.ASCIIOnly.Dropped, 1)
	assert.Len(t, rec.Blacklist.Hits, 1)
	assert.NotEmpty(t, rec.Blacklist.Patterns)
	assert.NotNil(t, rec.Errors)
	require.NoError(t, types.Validate(rec))
}
