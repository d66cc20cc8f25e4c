// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup resolves record identity across sources and snowball rounds.
// A record is identified by its source id and by up to three keys, strongest
// first: its OpenAlex work id, its DOI, and its normalized title.
package dedup

import (
	"github.com/pdiddy/review-engine/internal/normalize"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Index reports whether an identity is already registered.
type Index interface {
	Known(key types.IdentityKey) bool
	KnownID(id string) bool
}

// RemovedByID counts removals matched on the record id alone, when none of
// its identity keys matched.
const RemovedByID = "id"

// Keys returns the identity keys of r in priority order. Empty keys are
// omitted, so a record may have none.
func Keys(r types.CandidateRecord) []types.IdentityKey {
	keys := make([]types.IdentityKey, 0, len(types.KeyPriority))
	if oa := normalize.OpenAlexID(r.OpenAlexID); oa != "" {
		keys = append(keys, types.IdentityKey{Type: types.KeyOpenAlex, Value: oa})
	}
	if doi := normalize.DOI(r.DOI); doi != "" {
		keys = append(keys, types.IdentityKey{Type: types.KeyDOI, Value: doi})
	}
	title := r.TitleNormalized
	if title == "" {
		title = normalize.Title(r.Title)
	}
	if title != "" {
		keys = append(keys, types.IdentityKey{Type: types.KeyTitle, Value: title})
	}
	return keys
}

// Dedupe removes records already in the registry and repeats within raw.
// The first occurrence in raw wins. Each removal is counted under the
// highest-priority key type that matched, or under RemovedByID when only the
// record id matched; registry matches are checked before within-round
// matches. Keys and ids of removed records are not remembered. Records with
// neither an id nor a key cannot be identified and are kept uncounted.
func Dedupe(raw []types.CandidateRecord, registered Index) ([]types.CandidateRecord, map[string]int) {
	removed := make(map[string]int, len(types.KeyPriority)+1)
	for _, kt := range types.KeyPriority {
		removed[string(kt)] = 0
	}
	removed[RemovedByID] = 0

	seen := make(map[types.IdentityKey]struct{})
	seenID := make(map[string]struct{})
	unique := make([]types.CandidateRecord, 0, len(raw))
	inRound := func(k types.IdentityKey) bool {
		_, dup := seen[k]
		return dup
	}
	inRoundID := func(id string) bool {
		_, dup := seenID[id]
		return dup
	}

	for _, r := range raw {
		keys := Keys(r)
		if registered != nil {
			if by, ok := matchBy(r.ID, keys, registered.Known, registered.KnownID); ok {
				removed[by]++
				continue
			}
		}
		if by, ok := matchBy(r.ID, keys, inRound, inRoundID); ok {
			removed[by]++
			continue
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		if r.ID != "" {
			seenID[r.ID] = struct{}{}
		}
		unique = append(unique, r)
	}
	return unique, removed
}

// matchBy returns the counter a match is attributed to: the first matching
// key type, else RemovedByID when the id matches.
func matchBy(id string, keys []types.IdentityKey, key func(types.IdentityKey) bool, byID func(string) bool) (string, bool) {
	if kt, ok := firstMatch(keys, key); ok {
		return string(kt), true
	}
	if id != "" && byID(id) {
		return RemovedByID, true
	}
	return "", false
}

// firstMatch returns the type of the first key, in priority order, for
// which match is true.
func firstMatch(keys []types.IdentityKey, match func(types.IdentityKey) bool) (types.KeyType, bool) {
	for _, k := range keys {
		if match(k) {
			return k.Type, true
		}
	}
	return "", false
}

// Total sums the removal counters.
func Total(removed map[string]int) int {
	n := 0
	for _, v := range removed {
		n += v
	}
	return n
}
