// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llmcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/review-engine/pkg/types"
)

// DefaultBatchSize is the number of records sent per reviewer call.
const DefaultBatchSize = 20

var reviewPromptTmpl = template.Must(template.New("review").Parse(`You are screening papers for a literature review.

Topic: {{.Topic}}
{{- if .Criteria}}
Inclusion criteria: {{.Criteria}}
{{- end}}

For every paper below decide "include" if it is primary research relevant
to the topic, "exclude" if it is off-topic, or "hard_exclude" if it is a
review, survey or otherwise unusable. Give a one-sentence reason.

Respond with only JSON of the form:
{"decisions": [{"id": "...", "status": "include|exclude|hard_exclude", "reason": "..."}]}

Papers (round {{.Round}}):
{{- range .Papers}}
- id: {{.ID}}
  title: {{.Title}}
{{- if .Date}}
  date: {{.Date}}
{{- end}}
{{- end}}
`))

type reviewPaper struct {
	ID, Title, Date string
}

type reviewResponse struct {
	Decisions []types.Decision `json:"decisions"`
}

// CommandReviewer screens records by running an external command on
// batches of records.
type CommandReviewer struct {
	Cmd       Command
	Topic     string
	Criteria  string
	BatchSize int
	Log       *zap.Logger
}

// Review returns decisions in record order. Decisions naming unknown ids
// or carrying an invalid status are dropped, which leaves that record
// pending. A failed command aborts the review.
func (r *CommandReviewer) Review(ctx context.Context, round int, records []types.CandidateRecord) ([]types.Decision, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	byID := make(map[string]types.Decision, len(records))
	for start := 0; start < len(records); start += size {
		batch := records[start:min(start+size, len(records))]
		decisions, err := r.reviewBatch(ctx, round, batch)
		if err != nil {
			return nil, fmt.Errorf("reviewing round %d batch at %d: %w", round, start, err)
		}
		want := make(map[string]bool, len(batch))
		for _, rec := range batch {
			want[rec.ID] = true
		}
		for _, d := range decisions {
			switch {
			case !want[d.ID]:
				log.Warn("reviewer returned unknown id", zap.String("id", d.ID), zap.Int("round", round))
			case !d.Status.Valid():
				log.Warn("reviewer returned invalid status", zap.String("id", d.ID), zap.String("status", string(d.Status)))
			default:
				if _, seen := byID[d.ID]; !seen {
					byID[d.ID] = d
				}
			}
		}
	}

	out := make([]types.Decision, 0, len(byID))
	for _, rec := range records {
		if d, ok := byID[rec.ID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *CommandReviewer) reviewBatch(ctx context.Context, round int, batch []types.CandidateRecord) ([]types.Decision, error) {
	papers := make([]reviewPaper, len(batch))
	for i, rec := range batch {
		p := reviewPaper{ID: rec.ID, Title: rec.Title}
		if !rec.PublishedDate.IsZero() {
			p.Date = rec.PublishedDate.Format("2006-01-02")
		}
		papers[i] = p
	}
	var buf bytes.Buffer
	if err := reviewPromptTmpl.Execute(&buf, struct {
		Topic, Criteria string
		Round           int
		Papers          []reviewPaper
	}{Topic: r.Topic, Criteria: r.Criteria, Round: round, Papers: papers}); err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	out, err := r.Cmd.run(ctx, buf.String())
	if err != nil {
		return nil, err
	}
	raw, ok := extractJSON(out, '{', '}')
	if !ok {
		return nil, fmt.Errorf("%s printed no JSON object", r.Cmd.Name)
	}
	var resp reviewResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parsing reviewer response JSON: %w", err)
	}
	return resp.Decisions, nil
}
