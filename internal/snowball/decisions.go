// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrAwaitingDecisions is returned by FileReviewer when it has written a
// decisions worksheet that a reviewer must fill in before the round can be
// committed.
var ErrAwaitingDecisions = errors.New("awaiting review decisions")

// DecisionFile is the on-disk worksheet for one round. The reviewer sets
// status (include, exclude or hard_exclude) on each item and re-runs the
// snowball command.
type DecisionFile struct {
	Round   int            `yaml:"round"`
	Created time.Time      `yaml:"created"`
	Items   []DecisionItem `yaml:"items"`
}

// DecisionItem is one record awaiting a decision.
type DecisionItem struct {
	ID     string       `yaml:"id"`
	Title  string       `yaml:"title"`
	Date   string       `yaml:"date,omitempty"`
	DOI    string       `yaml:"doi,omitempty"`
	Status types.Status `yaml:"status"`
	Reason string       `yaml:"reason,omitempty"`
}

// WriteDecisionFile saves a pending worksheet for records.
func WriteDecisionFile(path string, round int, records []types.CandidateRecord) error {
	df := DecisionFile{Round: round, Created: time.Now().UTC()}
	for _, r := range records {
		df.Items = append(df.Items, DecisionItem{
			ID:     r.ID,
			Title:  r.Title,
			Date:   types.FormatDate(r.PublishedDate),
			DOI:    r.DOI,
			Status: types.StatusPending,
		})
	}
	data, err := yaml.Marshal(&df)
	if err != nil {
		return fmt.Errorf("marshaling decision file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating decisions directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadDecisionFile loads a worksheet from disk.
func ReadDecisionFile(path string) (*DecisionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading decision file: %w", err)
	}
	var df DecisionFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parsing decision file: %w", err)
	}
	for _, it := range df.Items {
		if !it.Status.Valid() {
			return nil, fmt.Errorf("decision file %s: item %s has invalid status %q", path, it.ID, it.Status)
		}
	}
	return &df, nil
}

// Decisions converts the worksheet items to reviewer decisions.
func (df *DecisionFile) Decisions() []types.Decision {
	out := make([]types.Decision, 0, len(df.Items))
	for _, it := range df.Items {
		out = append(out, types.Decision{ID: it.ID, Status: it.Status, Reason: it.Reason})
	}
	return out
}

// FileReviewer takes decisions from YAML worksheets in Dir, one per round.
// The first review of a round writes the worksheet and returns
// ErrAwaitingDecisions; a later run reads the completed file.
type FileReviewer struct {
	Dir string
}

// Path returns the worksheet path for round.
func (f *FileReviewer) Path(round int) string {
	return filepath.Join(f.Dir, fmt.Sprintf("round-%02d.yaml", round))
}

// Review returns the decisions recorded for round.
func (f *FileReviewer) Review(_ context.Context, round int, records []types.CandidateRecord) ([]types.Decision, error) {
	path := f.Path(round)
	df, err := ReadDecisionFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := WriteDecisionFile(path, round, records); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: edit %s and re-run", ErrAwaitingDecisions, path)
	}
	if err != nil {
		return nil, err
	}
	if df.Round != round {
		return nil, fmt.Errorf("decision file %s is for round %d, not %d", path, df.Round, round)
	}
	return df.Decisions(), nil
}
