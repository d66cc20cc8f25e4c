// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llmcli

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-engine/pkg/types"
)

// mockExecutor records prompts and replays canned output.
type mockExecutor struct {
	availableBins map[string]bool
	prompts       []string
	runPipedFunc  func(prompt string, stdout io.Writer) error
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunPiped(_ context.Context, _ string, _ []string, stdin io.Reader, stdout io.Writer) error {
	b, err := io.ReadAll(stdin)
	if err != nil {
		return err
	}
	m.prompts = append(m.prompts, string(b))
	if m.runPipedFunc != nil {
		return m.runPipedFunc(string(b), stdout)
	}
	return nil
}

func replying(out string) *mockExecutor {
	return &mockExecutor{runPipedFunc: func(_ string, w io.Writer) error {
		_, err := io.WriteString(w, out)
		return err
	}}
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand("  claude -p --output-format text ")
	require.NoError(t, err)
	assert.Equal(t, "claude", c.Name)
	assert.Equal(t, []string{"-p", "--output-format", "text"}, c.Args)
	assert.Equal(t, "claude -p --output-format text", c.String())

	_, err = ParseCommand("   ")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	m := &mockExecutor{availableBins: map[string]bool{"llm": true}}
	assert.NoError(t, Command{Name: "llm", exec: m}.Check())
	assert.Error(t, Command{Name: "missing", exec: m}.Check())
}

func TestGenerateJSONArray(t *testing.T) {
	m := replying("Sure, here you go:\n```json\n[\"graph neural networks\", \" molecule property \", \"\"]\n```\n")
	g := &CommandGenerator{Cmd: Command{Name: "llm", exec: m}}

	got, err := g.Generate(context.Background(), "GNNs for chemistry", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"graph neural networks", "molecule property"}, got)

	require.Len(t, m.prompts, 1)
	assert.Contains(t, m.prompts[0], "Topic: GNNs for chemistry")
	assert.Contains(t, m.prompts[0], "Return exactly 3 short search phrases")
}

func TestGenerateLines(t *testing.T) {
	m := replying("1. graph neural networks\n- \"message passing\"\n\n* 3) molecular graphs\n")
	g := &CommandGenerator{Cmd: Command{Name: "llm", exec: m}}

	got, err := g.Generate(context.Background(), "topic", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"graph neural networks", "message passing", "molecular graphs"}, got)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("command fails", func(t *testing.T) {
		m := &mockExecutor{runPipedFunc: func(string, io.Writer) error { return errors.New("exit status 1") }}
		g := &CommandGenerator{Cmd: Command{Name: "llm", exec: m}}
		_, err := g.Generate(context.Background(), "topic", 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "running llm")
	})
	t.Run("empty output", func(t *testing.T) {
		g := &CommandGenerator{Cmd: Command{Name: "llm", exec: replying("\n\n")}}
		_, err := g.Generate(context.Background(), "topic", 3)
		assert.Error(t, err)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := &mockExecutor{runPipedFunc: func(string, io.Writer) error { return errors.New("signal: killed") }}
		g := &CommandGenerator{Cmd: Command{Name: "llm", exec: m}}
		_, err := g.Generate(ctx, "topic", 3)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func reviewRecords(ids ...string) []types.CandidateRecord {
	out := make([]types.CandidateRecord, len(ids))
	for i, id := range ids {
		out[i] = types.CandidateRecord{ID: id, Title: "Paper " + id}
	}
	return out
}

func TestReviewBatchesAndOrders(t *testing.T) {
	m := &mockExecutor{}
	m.runPipedFunc = func(prompt string, w io.Writer) error {
		var body string
		switch {
		case strings.Contains(prompt, "id: a"):
			body = `{"decisions":[{"id":"b","status":"exclude","reason":"off-topic"},{"id":"a","status":"include"}]}`
		default:
			body = `{"decisions":[{"id":"c","status":"hard_exclude","reason":"survey"}]}`
		}
		_, err := io.WriteString(w, body)
		return err
	}
	r := &CommandReviewer{Cmd: Command{Name: "llm", exec: m}, Topic: "t", BatchSize: 2}

	got, err := r.Review(context.Background(), 1, reviewRecords("a", "b", "c"))
	require.NoError(t, err)
	assert.Len(t, m.prompts, 2)
	assert.Contains(t, m.prompts[0], "Papers (round 1):")
	assert.NotContains(t, m.prompts[1], "id: a")
	assert.Equal(t, []types.Decision{
		{ID: "a", Status: types.StatusInclude},
		{ID: "b", Status: types.StatusExclude, Reason: "off-topic"},
		{ID: "c", Status: types.StatusHardExclude, Reason: "survey"},
	}, got)
}

func TestReviewDropsUnknownAndInvalid(t *testing.T) {
	m := replying(`{"decisions":[
		{"id":"zzz","status":"include"},
		{"id":"a","status":"maybe"},
		{"id":"b","status":"include"},
		{"id":"b","status":"exclude"}
	]}`)
	r := &CommandReviewer{Cmd: Command{Name: "llm", exec: m}}

	got, err := r.Review(context.Background(), 0, reviewRecords("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []types.Decision{{ID: "b", Status: types.StatusInclude}}, got)
}

func TestReviewBadOutput(t *testing.T) {
	r := &CommandReviewer{Cmd: Command{Name: "llm", exec: replying("I cannot help with that.")}}
	_, err := r.Review(context.Background(), 0, reviewRecords("a"))
	assert.Error(t, err)

	r = &CommandReviewer{Cmd: Command{Name: "llm", exec: replying(`{"decisions": [oops]}`)}}
	_, err = r.Review(context.Background(), 0, reviewRecords("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing reviewer response JSON")
}

func TestReviewEmpty(t *testing.T) {
	m := &mockExecutor{}
	r := &CommandReviewer{Cmd: Command{Name: "llm", exec: m}}
	got, err := r.Review(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, m.prompts)
}
