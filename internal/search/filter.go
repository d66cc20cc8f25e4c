// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrMissingDate is returned in strict mode when a candidate has no date on
// the cutoff's date field.
var ErrMissingDate = errors.New("candidate date missing while cutoff is active")

// Filter applies the hard cutoff rules to each candidate independently, in
// order: drop the cutoff paper itself; drop candidates dated strictly after
// the cutoff on the cutoff's date field; drop candidates with no date on that
// field. A nil cutoff keeps everything. A cutoff without a date keeps
// nothing, since no candidate can be shown to precede it.
func Filter(candidates []types.CandidateRecord, cutoff *types.CutoffRecord) ([]types.CandidateRecord, types.FilterCounts) {
	var stats types.FilterCounts
	kept := make([]types.CandidateRecord, 0, len(candidates))

	for _, c := range candidates {
		if cutoff != nil && c.ID == cutoff.SourceID {
			stats.ExcludedCutoff++
			continue
		}
		if cutoff != nil {
			d, ok := c.Date(cutoff.DateField)
			if ok && (!cutoff.HasDate() || d.After(cutoff.Date)) {
				stats.ExcludedAfterCutoff++
				continue
			}
			if !ok {
				stats.ExcludedMissingDate++
				continue
			}
		}
		kept = append(kept, c)
	}
	stats.Kept = len(kept)
	return kept, stats
}

// firstMissingDate returns the first candidate, other than the cutoff itself,
// without a date on the cutoff's date field.
func firstMissingDate(candidates []types.CandidateRecord, cutoff *types.CutoffRecord) (string, bool) {
	if cutoff == nil {
		return "", false
	}
	for _, c := range candidates {
		if c.ID == cutoff.SourceID {
			continue
		}
		if _, ok := c.Date(cutoff.DateField); !ok {
			return c.ID, true
		}
	}
	return "", false
}
