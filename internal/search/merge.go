// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"slices"
	"sort"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Merge policy labels recorded in the selection artifact.
const (
	MergePolicy = "union_by_id_first_occurrence"
	SortPolicy  = "published_date_desc_id_asc"
)

// Merge unions the candidate lists by id, sorts by (published date
// descending, id ascending) with undated records last, and truncates to max
// (zero means unlimited). For duplicate ids the occurrence from the lowest
// query index wins for non-key fields; every contributing query index is
// kept in SourceQueryIndices. The result does not depend on list order.
func Merge(lists [][]types.CandidateRecord, max int) types.SelectionSet {
	index := make(map[string]int)
	var merged []types.CandidateRecord

	for _, list := range lists {
		for _, r := range list {
			if i, ok := index[r.ID]; ok {
				indices := merged[i].SourceQueryIndices
				if r.SourceQueryIndex < merged[i].SourceQueryIndex {
					merged[i] = r
				}
				merged[i].SourceQueryIndices = addIndex(indices, r.SourceQueryIndex)
				continue
			}
			r.SourceQueryIndices = []int{r.SourceQueryIndex}
			index[r.ID] = len(merged)
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return lessByDateDescID(merged[i], merged[j])
	})

	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return types.SelectionSet{Records: merged, MaxTotal: max}
}

func lessByDateDescID(a, b types.CandidateRecord) bool {
	ad, bd := a.PublishedDate, b.PublishedDate
	switch {
	case ad.IsZero() != bd.IsZero():
		return !ad.IsZero()
	case !ad.Equal(bd):
		return ad.After(bd)
	default:
		return a.ID < b.ID
	}
}

// addIndex inserts idx into the sorted set indices.
func addIndex(indices []int, idx int) []int {
	pos, found := slices.BinarySearch(indices, idx)
	if found {
		return indices
	}
	return slices.Insert(slices.Clone(indices), pos, idx)
}

// SelectionRecord renders the selection artifact.
func SelectionRecord(runID string, cutoff *types.CutoffRecord, sel types.SelectionSet) types.SelectionArtifact {
	art := types.SelectionArtifact{
		SchemaVersion: types.SchemaVersion,
		RunID:         runID,
		CutoffRef:     cutoff.ID(),
		SelectionPolicy: types.SelectionPolicy{
			Merge:    MergePolicy,
			Sort:     SortPolicy,
			MaxTotal: sel.MaxTotal,
		},
		Selected: make([]types.SelectedItem, 0, len(sel.Records)),
	}
	for _, r := range sel.Records {
		var dates map[types.DateField]string
		for f, t := range r.Dates {
			if t.IsZero() || f == types.DatePublished {
				continue
			}
			if dates == nil {
				dates = map[types.DateField]string{}
			}
			dates[f] = types.FormatDate(t)
		}
		art.Selected = append(art.Selected, types.SelectedItem{
			ID:                 r.ID,
			Title:              r.Title,
			PublishedDate:      types.FormatDate(r.PublishedDate),
			SourceQueryIndices: r.SourceQueryIndices,
			DOI:                r.DOI,
			OpenAlexID:         r.OpenAlexID,
			Source:             r.Source,
			Dates:              dates,
		})
	}
	return art
}
