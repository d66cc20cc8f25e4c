// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Status is the review decision recorded for a registry entry.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInclude     Status = "include"
	StatusExclude     Status = "exclude"
	StatusHardExclude Status = "hard_exclude"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInclude, StatusExclude, StatusHardExclude:
		return true
	}
	return false
}

// Decided reports whether s is a terminal decision.
func (s Status) Decided() bool {
	return s == StatusInclude || s == StatusExclude || s == StatusHardExclude
}

// KeyType names an identity key kind used to match records across sources
// and rounds.
type KeyType string

const (
	KeyOpenAlex KeyType = "openalex_id"
	KeyDOI      KeyType = "doi"
	KeyTitle    KeyType = "title"
)

// KeyPriority lists key types from strongest to weakest. The first key type
// that matches decides which counter a duplicate is attributed to.
var KeyPriority = []KeyType{KeyOpenAlex, KeyDOI, KeyTitle}

// IdentityKey is one typed identifier of a record.
type IdentityKey struct {
	Type  KeyType
	Value string
}

// String renders the key as "type:value", the form stored in the registry.
func (k IdentityKey) String() string {
	return string(k.Type) + ":" + k.Value
}

// ParseIdentityKey parses the "type:value" form.
func ParseIdentityKey(s string) (IdentityKey, error) {
	typ, val, ok := strings.Cut(s, ":")
	if !ok || val == "" {
		return IdentityKey{}, fmt.Errorf("malformed identity key %q", s)
	}
	switch kt := KeyType(typ); kt {
	case KeyOpenAlex, KeyDOI, KeyTitle:
		return IdentityKey{Type: kt, Value: val}, nil
	default:
		return IdentityKey{}, fmt.Errorf("unknown identity key type %q", typ)
	}
}

// RegistryEntry records one identity ever seen across snowball rounds.
type RegistryEntry struct {
	ID           string   `json:"id" yaml:"id" validate:"required"`
	Status       Status   `json:"status" yaml:"status" validate:"required,oneof=pending include exclude hard_exclude"`
	IdentityKeys []string `json:"identity_keys" yaml:"identity_keys"`
	FirstRound   int      `json:"first_round" yaml:"first_round" validate:"gte=0"`
	LastRound    int      `json:"last_round" yaml:"last_round" validate:"gtefield=FirstRound"`

	// Title and Source describe the record that created the entry. They
	// are informational and never used for matching.
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Decision is a reviewer's verdict on one record.
type Decision struct {
	ID     string `json:"id" yaml:"id"`
	Status Status `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ReviewOutcome tallies the decisions made in one round.
type ReviewOutcome struct {
	Include int `json:"include" yaml:"include"`
	Exclude int `json:"exclude" yaml:"exclude"`
	Other   int `json:"other" yaml:"other"`
}

// RoundMeta summarises one snowball round. Round 0 is the seed review.
type RoundMeta struct {
	Round          int            `json:"round" yaml:"round"`
	SeedCount      int            `json:"seed_count" yaml:"seed_count"`
	RawCount       int            `json:"raw_count" yaml:"raw_count"`
	FilteredCount  int            `json:"filtered_count" yaml:"filtered_count"`
	DedupRemovedBy map[string]int `json:"dedup_removed_by" yaml:"dedup_removed_by"`
	ForReviewCount int            `json:"for_review_count" yaml:"for_review_count"`
	ReviewOutcome  ReviewOutcome  `json:"review_outcome" yaml:"review_outcome"`
	IncludedTotal  int            `json:"included_total" yaml:"included_total"`
}
