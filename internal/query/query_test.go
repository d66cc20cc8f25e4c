// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name      string
		phrase    string
		max       int
		want      []string
		truncated bool
	}{
		{"simple", "speech tokens", 8, []string{"speech", "tokens"}, false},
		{"punctuation and case", "Neural Audio-Codecs, v2!", 8, []string{"neural", "audio", "codecs", "v2"}, false},
		{"dedup keeps first", "token speech token SPEECH", 8, []string{"token", "speech"}, false},
		{"cap", "a b c d e", 3, []string{"a", "b", "c"}, true},
		{"zero max uses default", "one two", 0, []string{"one", "two"}, false},
		{"non ascii removed", "café tokens", 8, []string{"caf", "tokens"}, false},
		{"empty", "  ", 8, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Tokenize(tt.phrase, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.truncated, truncated)
		})
	}
}

func TestBuild(t *testing.T) {
	q := Build("speech tokens", 8)
	assert.Equal(t, "speech tokens", q.Phrase)
	assert.Equal(t, []string{"speech", "tokens"}, q.Tokens)
	assert.Equal(t, "(speech OR tokens) AND (survey OR review OR overview)", q.QueryString)
	assert.False(t, q.Truncated)
}

func TestBuildSingleToken(t *testing.T) {
	q := Build("codecs", 8)
	assert.Equal(t, "(codecs) AND (survey OR review OR overview)", q.QueryString)
}

func TestBuildDeterministic(t *testing.T) {
	a := Build("Discrete Speech Tokens for LLMs", 4)
	b := Build("Discrete Speech Tokens for LLMs", 4)
	assert.Equal(t, a, b)
	assert.True(t, a.Truncated)
	assert.Equal(t, []string{"discrete", "speech", "tokens", "for"}, a.Tokens)
}

func TestBuildAllIndexes(t *testing.T) {
	qs := BuildAll([]string{"speech tokens", "audio codecs"}, 8)
	if assert.Len(t, qs, 2) {
		assert.Equal(t, 0, qs[0].Index)
		assert.Equal(t, 1, qs[1].Index)
		assert.Equal(t, "(audio OR codecs) AND (survey OR review OR overview)", qs[1].QueryString)
	}
}
