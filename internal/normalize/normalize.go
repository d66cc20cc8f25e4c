// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize canonicalizes titles and identifiers for exact-match
// comparison across sources and rounds.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// commandWrapRe matches a markup command with a braced argument, such as
	// \textbf{...} or \mathrm{...}. The argument is kept.
	commandWrapRe = regexp.MustCompile(`\\[a-z]+\*?\s*\{([^{}]*)\}`)

	// mathDelimRe matches inline-math delimiters: $, \( \), \[ \].
	mathDelimRe = regexp.MustCompile(`\$|\\[()\[\]]`)

	// tagRe matches the inline markup tags publishers put in titles, such as
	// <i>, </sub>, <scp>. Other angle-bracketed text is kept as payload.
	tagRe = regexp.MustCompile(`</?(?:i|b|u|em|strong|sub|sup|scp|sc|span|br|tt|mi|mn|mo|math)\s*/?>`)
)

// Title returns the canonical form of a title: compatibility-decomposed with
// combining marks removed, lowercased, markup wrappers stripped to their
// payload, every non-alphanumeric rune replaced by a space, whitespace
// collapsed and trimmed. Title is pure and idempotent.
func Title(text string) string {
	s := fold(text)
	// Lowercasing can produce runes with a compatibility decomposition.
	s = fold(strings.ToLower(s))
	s = stripMarkup(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// fold applies NFKD and drops combining marks.
func fold(s string) string {
	d := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(d))
	for _, r := range d {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripMarkup removes markup wrappers and keeps their textual payload.
// Nested wrappers are unwrapped innermost first.
func stripMarkup(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	for {
		next := commandWrapRe.ReplaceAllString(s, " $1 ")
		if next == s {
			break
		}
		s = next
	}
	return mathDelimRe.ReplaceAllString(s, " ")
}

// DOI returns the canonical bare DOI: prefixes such as "https://doi.org/" and
// "doi:" removed, lowercased, surrounding space trimmed. Returns "" for input
// that is not a DOI.
func DOI(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "10.") || !strings.Contains(s, "/") {
		return ""
	}
	return s
}

// openAlexIDRe matches a bare OpenAlex work id such as "W2741809807".
var openAlexIDRe = regexp.MustCompile(`^[Ww]\d+$`)

// OpenAlexID returns the canonical OpenAlex work id ("W" followed by digits),
// stripping the https://openalex.org/ prefix. Returns "" for other input.
func OpenAlexID(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range []string{"https://openalex.org/", "http://openalex.org/", "openalex:"} {
		s = strings.TrimPrefix(s, p)
	}
	if !openAlexIDRe.MatchString(s) {
		return ""
	}
	return strings.ToUpper(s)
}
