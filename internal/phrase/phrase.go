// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package phrase requests search phrases from an external generator exactly
// once per run and post-processes them: review-class terms are scrubbed and
// non-ASCII phrases are dropped. There is no retry and no fallback phrase.
package phrase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrNoPhrases is returned when no phrase survives post-processing.
var ErrNoPhrases = errors.New("no search phrases survived filtering")

// Generator produces search phrases for a topic. Implementations wrap an
// external text generator; Run calls Generate exactly once.
type Generator interface {
	Generate(ctx context.Context, topic string, count int) ([]string, error)
}

// Drop reasons recorded for rejected phrases.
const (
	ReasonBlacklistHit    = "blacklist_hit"
	ReasonEmptyAfterScrub = "empty_after_scrub"
	ReasonNonASCII        = "non_ascii"
	ReasonNoASCIILetter   = "no_ascii_letter"
)

// blacklistPatterns are the review/survey/overview-class terms. Multi-word
// forms come first so they are removed as a whole.
var blacklistPatterns = []string{
	`systematic\s+literature\s+reviews?`,
	`systematic\s+reviews?`,
	`literature\s+reviews?`,
	`scoping\s+reviews?`,
	`state[\s-]+of[\s-]+the[\s-]+art`,
	`meta[\s-]?analys[ie]s`,
	`overviews?`,
	`surveys?`,
	`reviews?`,
	`tutorials?`,
}

var blacklistRe = regexp.MustCompile(`(?i)\b(?:` + strings.Join(blacklistPatterns, "|") + `)\b`)

// Patterns returns the blacklist patterns for the phrase record.
func Patterns() []string {
	return append([]string(nil), blacklistPatterns...)
}

// Result holds the outcome of one generation pass.
type Result struct {
	Topic      string
	NRequested int
	Mode       types.BlacklistMode

	Raw      []string
	Accepted []types.Phrase

	Hits             []types.BlacklistHit
	BlacklistDropped []types.DroppedPhrase
	ASCIIDropped     []types.DroppedPhrase
}

// Texts returns the accepted phrase texts in generator order.
func (r Result) Texts() []string {
	out := make([]string, len(r.Accepted))
	for i, p := range r.Accepted {
		out[i] = p.Text
	}
	return out
}

// Record renders the phrase-generation artifact. errs lists fatal or
// recorded errors of the pass.
func (r Result) Record(runID string, errs []string) types.PhraseArtifact {
	return types.PhraseArtifact{
		SchemaVersion: types.SchemaVersion,
		RunID:         runID,
		TopicInput:    r.Topic,
		NRequested:    r.NRequested,
		PhrasesRaw:    nonNil(r.Raw),
		ASCIIOnly:     types.ASCIIReport{Dropped: nonNilDropped(r.ASCIIDropped)},
		Blacklist: types.BlacklistReport{
			Mode:     r.Mode,
			Patterns: Patterns(),
			Hits:     nonNilHits(r.Hits),
			Dropped:  nonNilDropped(r.BlacklistDropped),
		},
		PhrasesClean: nonNil(r.Texts()),
		Errors:       nonNil(errs),
	}
}

// Run calls gen once for topic and post-processes the phrases. A generator
// error or an empty surviving list is fatal; the partial Result is still
// returned so the caller can write the phrase record.
func Run(ctx context.Context, gen Generator, topic string, count int, mode types.BlacklistMode) (Result, error) {
	raw, err := gen.Generate(ctx, topic, count)
	if err != nil {
		return Result{Topic: topic, NRequested: count, Mode: mode}, fmt.Errorf("generating phrases: %w", err)
	}
	res := Process(raw, mode)
	res.Topic = topic
	res.NRequested = count
	if len(res.Accepted) == 0 {
		return res, ErrNoPhrases
	}
	return res, nil
}

// Process applies the blacklist scrub and the ASCII gate to raw phrases, in
// that order. Dropped phrases are recorded with a reason.
func Process(raw []string, mode types.BlacklistMode) Result {
	if mode == "" {
		mode = types.BlacklistClean
	}
	res := Result{Mode: mode, Raw: raw}

	for _, p := range raw {
		hits := blacklistRe.FindAllString(p, -1)
		for _, h := range hits {
			res.Hits = append(res.Hits, types.BlacklistHit{Phrase: p, Term: strings.ToLower(h)})
		}

		if len(hits) > 0 && mode == types.BlacklistFail {
			res.BlacklistDropped = append(res.BlacklistDropped, types.DroppedPhrase{Phrase: p, Reason: ReasonBlacklistHit})
			continue
		}

		cleaned := collapse(blacklistRe.ReplaceAllString(p, " "))
		if cleaned == "" {
			res.BlacklistDropped = append(res.BlacklistDropped, types.DroppedPhrase{Phrase: p, Reason: ReasonEmptyAfterScrub})
			continue
		}

		if reason := asciiReason(cleaned); reason != "" {
			res.ASCIIDropped = append(res.ASCIIDropped, types.DroppedPhrase{Phrase: p, Reason: reason})
			continue
		}

		res.Accepted = append(res.Accepted, types.Phrase{
			Text:             cleaned,
			PassedBlacklist:  true,
			PassedASCIICheck: true,
		})
	}
	return res
}

// asciiReason returns "" when s is printable ASCII with at least one letter,
// or the drop reason otherwise.
func asciiReason(s string) string {
	hasLetter := false
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return ReasonNonASCII
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLetter = true
		}
	}
	if !hasLetter {
		return ReasonNoASCIILetter
	}
	return ""
}

// collapse normalizes whitespace to single spaces and trims.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilDropped(s []types.DroppedPhrase) []types.DroppedPhrase {
	if s == nil {
		return []types.DroppedPhrase{}
	}
	return s
}

func nonNilHits(s []types.BlacklistHit) []types.BlacklistHit {
	if s == nil {
		return []types.BlacklistHit{}
	}
	return s
}
