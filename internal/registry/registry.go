// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the cross-round inclusion/exclusion registry. Every
// identity ever reviewed is registered once; its decision, once made, is
// never changed by a later round.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/review-engine/internal/dedup"
	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrStatusTransition is returned when a decided entry would change status.
var ErrStatusTransition = errors.New("registry status transition not allowed")

// Registry is the in-memory registry. All methods are safe for concurrent
// use; Register holds the lock for the whole commit.
type Registry struct {
	mu        sync.Mutex
	entries   []*types.RegistryEntry
	byID      map[string]*types.RegistryEntry
	byKey     map[string]*types.RegistryEntry
	updatedAt time.Time

	// now is replaced in tests.
	now func() time.Time
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byID:  make(map[string]*types.RegistryEntry),
		byKey: make(map[string]*types.RegistryEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FromArtifact rebuilds a registry from its persisted form.
func FromArtifact(art types.RegistryArtifact) (*Registry, error) {
	r := New()
	r.updatedAt = art.UpdatedAt
	for _, e := range art.Entries {
		if err := types.Validate(e); err != nil {
			return nil, fmt.Errorf("registry entry %s: %w", e.ID, err)
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("registry entry %s listed twice", e.ID)
		}
		entry := e
		entry.IdentityKeys = slices.Clone(e.IdentityKeys)
		r.add(&entry)
	}
	return r, nil
}

func (r *Registry) add(e *types.RegistryEntry) {
	r.entries = append(r.entries, e)
	r.byID[e.ID] = e
	for _, k := range e.IdentityKeys {
		if _, taken := r.byKey[k]; !taken {
			r.byKey[k] = e
		}
	}
}

// Known reports whether key belongs to a registered entry.
func (r *Registry) Known(key types.IdentityKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byKey[key.String()]
	return ok
}

// KnownID reports whether id is a registered entry id.
func (r *Registry) KnownID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok
}

// Get returns a copy of the entry with the given id.
func (r *Registry) Get(id string) (types.RegistryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return types.RegistryEntry{}, false
	}
	return copyEntry(e), true
}

// Match returns the entry rec resolves to, by id or by any identity key.
func (r *Registry) Match(rec types.CandidateRecord) (types.RegistryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.match(rec, keyStrings(rec)); e != nil {
		return copyEntry(e), true
	}
	return types.RegistryEntry{}, false
}

func (r *Registry) match(rec types.CandidateRecord, keys []string) *types.RegistryEntry {
	if e, ok := r.byID[rec.ID]; ok {
		return e
	}
	for _, k := range keys {
		if e, ok := r.byKey[k]; ok {
			return e
		}
	}
	return nil
}

// Register commits one round of reviewed records. A new identity is created
// pending and then takes its decision; a missing or non-terminal decision
// leaves it pending. An identity already registered keeps its status: only
// its last round advances and newly seen keys are added. Register fails if
// round precedes a round already committed.
func (r *Registry) Register(records []types.CandidateRecord, decisions []types.Decision, round int) (types.RoundMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last := r.lastRound(); round < last {
		return types.RoundMeta{}, fmt.Errorf("round %d precedes committed round %d", round, last)
	}

	byID := make(map[string]types.Decision, len(decisions))
	for _, d := range decisions {
		if _, dup := byID[d.ID]; !dup {
			byID[d.ID] = d
		}
	}

	meta := types.RoundMeta{Round: round, ForReviewCount: len(records)}
	for _, rec := range records {
		keys := keyStrings(rec)
		e := r.match(rec, keys)
		if e == nil {
			e = &types.RegistryEntry{
				ID:         rec.ID,
				Status:     types.StatusPending,
				FirstRound: round,
				LastRound:  round,
				Title:      rec.Title,
				Source:     rec.Source,
			}
			if d, ok := byID[rec.ID]; ok && d.Status.Decided() {
				e.Status = d.Status
			}
			e.IdentityKeys = keys
			r.add(e)
		} else {
			e.LastRound = max(e.LastRound, round)
			r.unionKeys(e, keys)
		}

		switch e.Status {
		case types.StatusInclude:
			meta.ReviewOutcome.Include++
		case types.StatusExclude, types.StatusHardExclude:
			meta.ReviewOutcome.Exclude++
		default:
			meta.ReviewOutcome.Other++
		}
	}

	meta.IncludedTotal = r.count(types.StatusInclude)
	r.updatedAt = r.now()
	return meta, nil
}

func (r *Registry) unionKeys(e *types.RegistryEntry, keys []string) {
	for _, k := range keys {
		if owner, taken := r.byKey[k]; taken && owner != e {
			continue
		}
		if !slices.Contains(e.IdentityKeys, k) {
			e.IdentityKeys = append(e.IdentityKeys, k)
			r.byKey[k] = e
		}
	}
}

// Transition sets the status of entry id. Moving a pending entry to a
// decision is allowed; changing a decided entry returns ErrStatusTransition.
func (r *Registry) Transition(id string, status types.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry entry %s not found", id)
	}
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	if e.Status == status {
		return nil
	}
	if e.Status.Decided() || !status.Decided() {
		return fmt.Errorf("%w: %s %s -> %s", ErrStatusTransition, id, e.Status, status)
	}
	e.Status = status
	r.updatedAt = r.now()
	return nil
}

// IncludedIn returns the entries first registered in round with status
// include, in registration order. They seed the next round.
func (r *Registry) IncludedIn(round int) []types.RegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.RegistryEntry
	for _, e := range r.entries {
		if e.FirstRound == round && e.Status == types.StatusInclude {
			out = append(out, copyEntry(e))
		}
	}
	return out
}

// LastRound returns the highest committed round, or -1 when empty.
func (r *Registry) LastRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRound()
}

func (r *Registry) lastRound() int {
	last := -1
	for _, e := range r.entries {
		last = max(last, e.LastRound)
	}
	return last
}

// Counts returns the number of entries per status.
func (r *Registry) Counts() map[types.Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[types.Status]int)
	for _, e := range r.entries {
		out[e.Status]++
	}
	return out
}

func (r *Registry) count(s types.Status) int {
	n := 0
	for _, e := range r.entries {
		if e.Status == s {
			n++
		}
	}
	return n
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entries returns copies of every entry ordered by first round, then id.
func (r *Registry) Entries() []types.RegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.RegistryEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = copyEntry(e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FirstRound != out[j].FirstRound {
			return out[i].FirstRound < out[j].FirstRound
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Artifact returns the persisted form of the registry.
func (r *Registry) Artifact() types.RegistryArtifact {
	entries := r.Entries()
	r.mu.Lock()
	defer r.mu.Unlock()
	return types.RegistryArtifact{
		Version:   types.SchemaVersion,
		Entries:   entries,
		UpdatedAt: r.updatedAt,
	}
}

// EntryRecord rebuilds a candidate record from an entry's identity keys, for
// expanding entries loaded from a previous run.
func EntryRecord(e types.RegistryEntry) types.CandidateRecord {
	rec := types.CandidateRecord{ID: e.ID, Title: e.Title, Source: e.Source}
	for _, s := range e.IdentityKeys {
		k, err := types.ParseIdentityKey(s)
		if err != nil {
			continue
		}
		switch k.Type {
		case types.KeyOpenAlex:
			rec.OpenAlexID = k.Value
		case types.KeyDOI:
			rec.DOI = k.Value
		case types.KeyTitle:
			rec.TitleNormalized = k.Value
		}
	}
	return rec
}

func keyStrings(rec types.CandidateRecord) []string {
	keys := dedup.Keys(rec)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func copyEntry(e *types.RegistryEntry) types.RegistryEntry {
	c := *e
	c.IdentityKeys = slices.Clone(e.IdentityKeys)
	return c
}
