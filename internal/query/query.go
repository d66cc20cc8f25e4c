// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns accepted search phrases into canonical boolean queries.
package query

import (
	"regexp"
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// DefaultMaxTokens is the token cap used when the caller passes zero.
const DefaultMaxTokens = 8

// ReviewClause is the fixed clause every query is restricted to.
const ReviewClause = "(survey OR review OR overview)"

var (
	nonAlnumRe = regexp.MustCompile(`[^A-Za-z0-9]+`)
	tokenRe    = regexp.MustCompile(`^[a-z0-9]+$`)
)

// Tokenize splits phrase into lowercase alphanumeric tokens, deduplicated in
// first-seen order and capped at maxTokens. truncated reports whether
// tokens were dropped by the cap.
func Tokenize(phrase string, maxTokens int) (tokens []string, truncated bool) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(nonAlnumRe.ReplaceAllString(phrase, " "))) {
		if !tokenRe.MatchString(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	if len(tokens) > maxTokens {
		return tokens[:maxTokens], true
	}
	return tokens, false
}

// Build derives the query for one phrase:
// (t1 OR t2 OR ... OR tk) AND (survey OR review OR overview).
// A phrase without tokens yields an empty QueryString.
func Build(phrase string, maxTokens int) types.Query {
	tokens, truncated := Tokenize(phrase, maxTokens)
	q := types.Query{
		Phrase:    phrase,
		Tokens:    tokens,
		Truncated: truncated,
	}
	if len(tokens) > 0 {
		q.QueryString = "(" + strings.Join(tokens, " OR ") + ") AND " + ReviewClause
	}
	return q
}

// BuildAll builds one query per phrase, indexed in phrase order.
func BuildAll(phrases []string, maxTokens int) []types.Query {
	queries := make([]types.Query, len(phrases))
	for i, p := range phrases {
		queries[i] = Build(p, maxTokens)
		queries[i].Index = i
	}
	return queries
}
