// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-engine/internal/artifact"
	"github.com/pdiddy/review-engine/pkg/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry() *Registry {
	r := New()
	r.now = func() time.Time { return fixedNow }
	return r
}

func rec(id, title, doi string) types.CandidateRecord {
	return types.CandidateRecord{ID: id, Title: title, DOI: doi, Source: "arxiv"}
}

func decide(id string, s types.Status) types.Decision {
	return types.Decision{ID: id, Status: s}
}

func TestRegisterNewEntries(t *testing.T) {
	r := newTestRegistry()
	meta, err := r.Register(
		[]types.CandidateRecord{rec("a", "Alpha", "10.1/a"), rec("b", "Beta", ""), rec("c", "Gamma", "")},
		[]types.Decision{decide("a", types.StatusInclude), decide("b", types.StatusHardExclude)},
		0,
	)
	require.NoError(t, err)

	assert.Equal(t, types.RoundMeta{
		Round:          0,
		ForReviewCount: 3,
		ReviewOutcome:  types.ReviewOutcome{Include: 1, Exclude: 1, Other: 1},
		IncludedTotal:  1,
	}, meta)

	a, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, types.StatusInclude, a.Status)
	assert.Equal(t, []string{"doi:10.1/a", "title:alpha"}, a.IdentityKeys)

	c, _ := r.Get("c")
	assert.Equal(t, types.StatusPending, c.Status)
	assert.True(t, r.Known(types.IdentityKey{Type: types.KeyTitle, Value: "gamma"}))
	assert.True(t, r.KnownID("c"))
	assert.False(t, r.KnownID("gamma"))
}

// Registering the same identity twice with different decisions keeps the
// first decision.
func TestRegisterIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register([]types.CandidateRecord{rec("a", "Alpha", "10.1/a")},
		[]types.Decision{decide("a", types.StatusInclude)}, 0)
	require.NoError(t, err)

	meta, err := r.Register([]types.CandidateRecord{rec("W9", "Alpha (revised)", "10.1/A")},
		[]types.Decision{decide("W9", types.StatusExclude)}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
	a, _ := r.Get("a")
	assert.Equal(t, types.StatusInclude, a.Status)
	assert.Equal(t, 0, a.FirstRound)
	assert.Equal(t, 1, a.LastRound)
	assert.Contains(t, a.IdentityKeys, "title:alpha revised")
	assert.Equal(t, 1, meta.ReviewOutcome.Include)
}

func TestRegisterIgnoresNonTerminalDecision(t *testing.T) {
	r := newTestRegistry()
	meta, err := r.Register([]types.CandidateRecord{rec("a", "Alpha", "")},
		[]types.Decision{decide("a", types.StatusPending), decide("a", types.StatusInclude)}, 0)
	require.NoError(t, err)
	a, _ := r.Get("a")
	assert.Equal(t, types.StatusPending, a.Status, "first decision for an id wins")
	assert.Equal(t, 1, meta.ReviewOutcome.Other)
}

func TestRegisterRejectsEarlierRound(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register([]types.CandidateRecord{rec("a", "Alpha", "")}, nil, 2)
	require.NoError(t, err)
	_, err = r.Register([]types.CandidateRecord{rec("b", "Beta", "")}, nil, 1)
	assert.Error(t, err)
	assert.Equal(t, 2, r.LastRound())
}

func TestTransition(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register([]types.CandidateRecord{rec("a", "Alpha", ""), rec("b", "Beta", "")},
		[]types.Decision{decide("b", types.StatusExclude)}, 0)
	require.NoError(t, err)

	require.NoError(t, r.Transition("a", types.StatusInclude))
	require.NoError(t, r.Transition("a", types.StatusInclude), "same status is a no-op")

	assert.ErrorIs(t, r.Transition("a", types.StatusExclude), ErrStatusTransition)
	assert.ErrorIs(t, r.Transition("b", types.StatusPending), ErrStatusTransition)
	assert.ErrorIs(t, r.Transition("b", types.StatusHardExclude), ErrStatusTransition)
	assert.Error(t, r.Transition("missing", types.StatusInclude))
	assert.Error(t, r.Transition("a", "maybe"))

	b, _ := r.Get("b")
	assert.Equal(t, types.StatusExclude, b.Status)
}

func TestIncludedInAndEntryRecord(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register([]types.CandidateRecord{
		{ID: "W1", Title: "One", OpenAlexID: "W1", DOI: "10.1/one", Source: "openalex"},
		rec("b", "Two", ""),
	}, []types.Decision{decide("W1", types.StatusInclude), decide("b", types.StatusExclude)}, 0)
	require.NoError(t, err)
	_, err = r.Register([]types.CandidateRecord{rec("c", "Three", "")},
		[]types.Decision{decide("c", types.StatusInclude)}, 1)
	require.NoError(t, err)

	inc := r.IncludedIn(0)
	require.Len(t, inc, 1)
	got := EntryRecord(inc[0])
	assert.Equal(t, types.CandidateRecord{
		ID: "W1", Title: "One", OpenAlexID: "W1", DOI: "10.1/one", TitleNormalized: "one", Source: "openalex",
	}, got)
	assert.Len(t, r.IncludedIn(1), 1)
	assert.Empty(t, r.IncludedIn(2))
}

func TestRegisterConcurrentCallersSerialize(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Register([]types.CandidateRecord{rec("a", "Alpha", "10.1/a")},
				[]types.Decision{decide("a", types.StatusInclude)}, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.Len())
}

func TestArtifactRoundTrip(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register([]types.CandidateRecord{rec("b", "Beta", ""), rec("a", "Alpha", "10.1/a")},
		[]types.Decision{decide("a", types.StatusInclude)}, 0)
	require.NoError(t, err)

	art := r.Artifact()
	assert.Equal(t, fixedNow, art.UpdatedAt)
	assert.Equal(t, "a", art.Entries[0].ID)
	require.NoError(t, types.Validate(art))

	back, err := FromArtifact(art)
	require.NoError(t, err)
	assert.Equal(t, art, back.Artifact())
	assert.True(t, back.Known(types.IdentityKey{Type: types.KeyDOI, Value: "10.1/a"}))
}

func TestFromArtifactRejectsDuplicates(t *testing.T) {
	_, err := FromArtifact(types.RegistryArtifact{Version: 1, Entries: []types.RegistryEntry{
		{ID: "a", Status: types.StatusPending},
		{ID: "a", Status: types.StatusInclude},
	}})
	assert.Error(t, err)
}

// --- stores ---

func storeFixture(t *testing.T) *Registry {
	t.Helper()
	r := newTestRegistry()
	_, err := r.Register([]types.CandidateRecord{rec("a", "Alpha", "10.1/a"), rec("b", "Beta", "")},
		[]types.Decision{decide("a", types.StatusInclude)}, 0)
	require.NoError(t, err)
	return r
}

func TestJSONStore(t *testing.T) {
	ctx := context.Background()
	s := &JSONStore{Path: filepath.Join(t.TempDir(), artifact.RegistryFile)}

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
	assert.Equal(t, -1, empty.LastRound())

	r := storeFixture(t)
	require.NoError(t, s.Save(ctx, r))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Artifact(), loaded.Artifact())
	require.NoError(t, s.Close())
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)

	r := storeFixture(t)
	require.NoError(t, s.Save(ctx, r))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Artifact(), loaded.Artifact())

	// A later round adds keys and advances last_round.
	_, err = r.Register([]types.CandidateRecord{{ID: "W5", OpenAlexID: "W5", Title: "Beta"}}, nil, 1)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	loaded, err = s2.Load(ctx)
	require.NoError(t, err)
	b, ok := loaded.Get("b")
	require.True(t, ok)
	assert.Equal(t, 1, b.LastRound)
	assert.Equal(t, []string{"title:beta", "openalex_id:W5"}, b.IdentityKeys)
}

// The database keeps a decided status even if a stale registry is saved.
func TestSQLiteStoreNeverMovesDecidedStatus(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, storeFixture(t)))

	stale := newTestRegistry()
	_, err = stale.Register([]types.CandidateRecord{rec("a", "Alpha", "10.1/a")},
		[]types.Decision{decide("a", types.StatusExclude)}, 0)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, stale))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	a, _ := loaded.Get("a")
	assert.Equal(t, types.StatusInclude, a.Status)
}

func TestTeeStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := OpenSQLite(filepath.Join(dir, "registry.db"))
	require.NoError(t, err)
	jsonPath := filepath.Join(dir, artifact.RegistryFile)
	tee := Tee{db, &JSONStore{Path: jsonPath}}

	r := storeFixture(t)
	require.NoError(t, tee.Save(ctx, r))

	loaded, err := tee.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Artifact(), loaded.Artifact())

	exported, err := (&JSONStore{Path: jsonPath}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Artifact(), exported.Artifact())
	require.NoError(t, tee.Close())

	empty, err := Tee{}.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}
