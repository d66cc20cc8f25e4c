// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts pipeline activity on a private Prometheus registry
// and writes it in the text exposition format at the end of a run. A nil
// *Recorder discards every observation.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/review-engine/pkg/types"
)

const namespace = "review_engine"

// Recorder holds the run's collectors.
type Recorder struct {
	reg *prometheus.Registry

	Queries         *prometheus.CounterVec
	Candidates      *prometheus.CounterVec
	Lookups         *prometheus.CounterVec
	DedupRemoved    *prometheus.CounterVec
	Reviewed        *prometheus.CounterVec
	RegistryEntries *prometheus.GaugeVec
	RoundDuration   prometheus.Histogram
}

// New creates a Recorder with its collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Search queries executed, by outcome.",
		}, []string{"status"}),
		Candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidate records seen, by stage.",
		}, []string{"stage"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_lookups_total",
			Help:      "Citation graph lookups, by direction and outcome.",
		}, []string{"direction", "status"}),
		DedupRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_removed_total",
			Help:      "Records removed as duplicates, by identity key type.",
		}, []string{"key_type"}),
		Reviewed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviewed_total",
			Help:      "Review outcomes committed to the registry.",
		}, []string{"outcome"}),
		RegistryEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_entries",
			Help:      "Registry entries by status after the last commit.",
		}, []string{"status"}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall time of one snowball round.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
	r.reg.MustRegister(r.Queries, r.Candidates, r.Lookups, r.DedupRemoved,
		r.Reviewed, r.RegistryEntries, r.RoundDuration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Query records one query outcome.
func (r *Recorder) Query(err error) {
	if r == nil {
		return
	}
	r.Queries.WithLabelValues(outcome(err)).Inc()
}

// AddCandidates adds n records seen at stage.
func (r *Recorder) AddCandidates(stage string, n int) {
	if r == nil {
		return
	}
	r.Candidates.WithLabelValues(stage).Add(float64(n))
}

// Lookup records one citation lookup.
func (r *Recorder) Lookup(direction string, err error) {
	if r == nil {
		return
	}
	r.Lookups.WithLabelValues(direction, outcome(err)).Inc()
}

// Round records a committed round and the registry status counts after it.
func (r *Recorder) Round(meta types.RoundMeta, counts map[types.Status]int, seconds float64) {
	if r == nil {
		return
	}
	for kt, n := range meta.DedupRemovedBy {
		r.DedupRemoved.WithLabelValues(kt).Add(float64(n))
	}
	r.Reviewed.WithLabelValues("include").Add(float64(meta.ReviewOutcome.Include))
	r.Reviewed.WithLabelValues("exclude").Add(float64(meta.ReviewOutcome.Exclude))
	r.Reviewed.WithLabelValues("other").Add(float64(meta.ReviewOutcome.Other))
	for _, s := range []types.Status{types.StatusPending, types.StatusInclude, types.StatusExclude, types.StatusHardExclude} {
		r.RegistryEntries.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	r.RoundDuration.Observe(seconds)
}

// WriteFile writes every collector to path in the text format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
