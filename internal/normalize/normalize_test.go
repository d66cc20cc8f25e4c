// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Attention Is All You Need", "attention is all you need"},
		{"punctuation", "Attention: is all, you need!", "attention is all you need"},
		{"whitespace", "  Paper \t X \n", "paper x"},
		{"accents", "Überblick über Töne", "uberblick uber tone"},
		{"compatibility ligature", "ﬁne-tuning", "fine tuning"},
		{"fullwidth", "ＧＰＴ４", "gpt4"},
		{"inline math", "Learning $\\alpha$-divergences", "learning alpha divergences"},
		{"paren math", "Bounds on \\(n\\)-grams", "bounds on n grams"},
		{"format command", "A \\textbf{Bold} Claim", "a bold claim"},
		{"nested commands", "\\emph{\\textbf{Deep}} nets", "deep nets"},
		{"html tags", "Speech <i>tokens</i> for LLMs", "speech tokens for llms"},
		{"subscript tag", "H<sub>2</sub>O splitting", "h 2 o splitting"},
		{"angle brackets are not tags", "x<y>z", "x y z"},
		{"unknown tag name kept", "Learning <graph> structure", "learning graph structure"},
		{"empty", "", ""},
		{"only symbols", "--- !!! ---", ""},
		{"digits kept", "Top-10 in 2024", "top 10 in 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.in))
		})
	}
}

func TestTitleIdempotent(t *testing.T) {
	inputs := []string{
		"Attention Is All You Need",
		"Überblick Ton",
		"ﬁne-tuning ＬＬＭｓ",
		"A \\textbf{Bold} $x^2$ <i>claim</i>",
		"İstanbul K (Kelvin) Ω",
		"ǅemal and ß",
		"   ",
		"日本語のタイトル",
		"\\mathrm{\\emph{x}}",
	}
	for _, in := range inputs {
		once := Title(in)
		assert.Equal(t, once, Title(once), "input %q", in)
	}
}

func TestTitleMatchesAcrossVariants(t *testing.T) {
	a := Title("Paper X")
	b := Title("paper   x.")
	c := Title("<b>Paper</b> X")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestDOI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1145/1234.5678", "10.1145/1234.5678"},
		{"https://doi.org/10.1145/ABC.5678", "10.1145/abc.5678"},
		{"doi:10.48550/arXiv.2401.00001", "10.48550/arxiv.2401.00001"},
		{" https://dx.doi.org/10.1/x ", "10.1/x"},
		{"not a doi", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DOI(tt.in), "input %q", tt.in)
	}
}

func TestOpenAlexID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://openalex.org/W2741809807", "W2741809807"},
		{"w123", "W123"},
		{"W123", "W123"},
		{"A123", ""},
		{"https://openalex.org/works/W1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OpenAlexID(tt.in), "input %q", tt.in)
	}
}
