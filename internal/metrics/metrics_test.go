// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-engine/pkg/types"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Query(nil)
	r.Query(nil)
	r.Query(errors.New("boom"))
	r.AddCandidates("raw", 12)
	r.Lookup("citing", nil)
	r.Round(types.RoundMeta{
		DedupRemovedBy: map[string]int{"doi": 2, "title": 1},
		ReviewOutcome:  types.ReviewOutcome{Include: 3, Exclude: 1},
	}, map[types.Status]int{types.StatusInclude: 5}, 2.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Queries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Queries.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.Candidates.WithLabelValues("raw")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.DedupRemoved.WithLabelValues("doi")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Reviewed.WithLabelValues("include")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.RegistryEntries.WithLabelValues("include")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.RegistryEntries.WithLabelValues("pending")))
}

func TestWriteFile(t *testing.T) {
	r := New()
	r.Query(nil)
	path := filepath.Join(t.TempDir(), "review.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `review_engine_queries_total{status="ok"} 1`))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Query(nil)
		r.AddCandidates("raw", 1)
		r.Lookup("citing", nil)
		r.Round(types.RoundMeta{}, nil, 0)
	})
	assert.NoError(t, r.WriteFile("ignored"))
}
