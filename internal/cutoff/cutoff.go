// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cutoff resolves the anchor paper of a topic run: the record whose
// normalized title equals the normalized topic. The cutoff's date bounds the
// seed set.
package cutoff

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/review-engine/internal/normalize"
	"github.com/pdiddy/review-engine/internal/search"
	"github.com/pdiddy/review-engine/pkg/types"
)

// TieBreak names the ordering used when several records share the title.
var TieBreak = []string{"date_asc_missing_last", "id_asc"}

// DefaultMaxResults caps the title search.
const DefaultMaxResults = 25

// ErrCutoffWithoutDate is returned when the resolved cutoff has no date on
// the run's date field, so no candidate could be compared against it.
var ErrCutoffWithoutDate = errors.New("cutoff has no date on the date field")

// Overrides replace the automatic cutoff search.
type Overrides struct {
	// ID fetches the cutoff by source id, bypassing search and tie-break.
	ID string

	// Title replaces the topic as the search title. Tie-break still applies.
	Title string

	DateField types.DateField
}

// Report describes how the cutoff was resolved.
type Report struct {
	Status          string
	TopicNormalized string
	DateField       types.DateField

	// SameTitle holds every candidate whose normalized title matched, in
	// tie-break order.
	SameTitle []types.CandidateRecord
}

// Resolver finds the cutoff once per run. Later calls return the first
// result without querying the source again.
type Resolver struct {
	Source     search.Source
	MaxResults int
	Log        *zap.Logger

	once   sync.Once
	cutoff *types.CutoffRecord
	report Report
	err    error
}

// Resolve returns the cutoff for topic, or nil when no record matches. A
// source failure is returned as an error rather than treated as "no cutoff",
// and so is a matched cutoff without a date (ErrCutoffWithoutDate).
func (r *Resolver) Resolve(ctx context.Context, topic string, ov Overrides) (*types.CutoffRecord, Report, error) {
	r.once.Do(func() {
		r.cutoff, r.report, r.err = r.resolve(ctx, topic, ov)
	})
	return r.cutoff, r.report, r.err
}

func (r *Resolver) resolve(ctx context.Context, topic string, ov Overrides) (*types.CutoffRecord, Report, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	field := ov.DateField
	if field == "" {
		field = types.DatePublished
	}
	rep := Report{
		Status:          types.CutoffAbsent,
		TopicNormalized: normalize.Title(topic),
		DateField:       field,
	}

	if ov.ID != "" {
		rec, err := r.Source.Lookup(ctx, ov.ID)
		if err != nil {
			return nil, rep, fmt.Errorf("looking up cutoff %s: %w", ov.ID, err)
		}
		if rec == nil {
			return nil, rep, fmt.Errorf("cutoff override %s not found in %s", ov.ID, r.Source.Name())
		}
		rep.Status = types.CutoffOverride
		rep.SameTitle = []types.CandidateRecord{*rec}
		c := newCutoff(*rec, field)
		if err := checkDate(c); err != nil {
			return nil, rep, err
		}
		return c, rep, nil
	}

	title := topic
	if ov.Title != "" {
		title = ov.Title
	}
	want := normalize.Title(title)
	max := r.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}
	cands, err := r.Source.SearchTitle(ctx, title, search.Options{MaxResults: max})
	if err != nil {
		return nil, rep, fmt.Errorf("searching cutoff title: %w", err)
	}

	for _, c := range cands {
		nt := c.TitleNormalized
		if nt == "" {
			nt = normalize.Title(c.Title)
		}
		if nt == want && want != "" {
			rep.SameTitle = append(rep.SameTitle, c)
		}
	}
	if len(rep.SameTitle) == 0 {
		log.Info("no cutoff found", zap.String("title", title), zap.Int("candidates", len(cands)))
		return nil, rep, nil
	}

	SortTieBreak(rep.SameTitle, field)
	rep.Status = types.CutoffResolved
	if ov.Title != "" {
		rep.Status = types.CutoffOverride
	}
	c := newCutoff(rep.SameTitle[0], field)
	if len(rep.SameTitle) > 1 {
		log.Info("cutoff tie-break",
			zap.String("winner", c.SourceID),
			zap.Int("same_title", len(rep.SameTitle)))
	}
	if err := checkDate(c); err != nil {
		log.Warn("cutoff without date", zap.String("id", c.SourceID), zap.String("date_field", string(c.DateField)))
		return nil, rep, err
	}
	return c, rep, nil
}

func checkDate(c *types.CutoffRecord) error {
	if c.HasDate() {
		return nil
	}
	return fmt.Errorf("%w: %s has no %s date", ErrCutoffWithoutDate, c.SourceID, c.DateField)
}

// SortTieBreak orders records by date on field ascending, records without a
// date last, then by id ascending.
func SortTieBreak(recs []types.CandidateRecord, field types.DateField) {
	sort.SliceStable(recs, func(i, j int) bool {
		di, oki := recs[i].Date(field)
		dj, okj := recs[j].Date(field)
		switch {
		case oki != okj:
			return oki
		case oki && !di.Equal(dj):
			return di.Before(dj)
		default:
			return recs[i].ID < recs[j].ID
		}
	})
}

func newCutoff(rec types.CandidateRecord, field types.DateField) *types.CutoffRecord {
	tn := rec.TitleNormalized
	if tn == "" {
		tn = normalize.Title(rec.Title)
	}
	c := &types.CutoffRecord{
		SourceID:        rec.ID,
		Title:           rec.Title,
		TitleNormalized: tn,
		DateField:       field,
	}
	if d, ok := rec.Date(field); ok {
		c.Date = d
	}
	return c
}

// Record renders the cutoff artifact.
func (rep Report) Record(runID, topic string, c *types.CutoffRecord) types.CutoffArtifact {
	art := types.CutoffArtifact{
		SchemaVersion:       types.SchemaVersion,
		RunID:               runID,
		TopicInput:          topic,
		TopicNormalized:     rep.TopicNormalized,
		DateField:           rep.DateField,
		TieBreak:            TieBreak,
		CutoffStatus:        rep.Status,
		CandidatesSameTitle: make([]types.RecordRef, 0, len(rep.SameTitle)),
		Errors:              []string{},
	}
	if art.DateField == "" {
		art.DateField = types.DatePublished
	}
	if c != nil {
		art.Cutoff = &types.CutoffRef{
			ID:              c.SourceID,
			Title:           c.Title,
			TitleNormalized: c.TitleNormalized,
			Date:            types.FormatDate(c.Date),
			DateField:       c.DateField,
		}
	}
	for _, s := range rep.SameTitle {
		art.CandidatesSameTitle = append(art.CandidatesSameTitle, types.NewRecordRef(s, art.DateField))
	}
	return art
}
