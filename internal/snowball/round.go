// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"errors"
	"fmt"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrIllegalTransition is returned when a round skips or repeats a state.
var ErrIllegalTransition = errors.New("illegal round state transition")

// State is a round's position in its lifecycle.
type State int

const (
	Seeded State = iota
	Expanded
	Deduped
	Reviewed
	Committed
)

func (s State) String() string {
	switch s {
	case Seeded:
		return "seeded"
	case Expanded:
		return "expanded"
	case Deduped:
		return "deduped"
	case Reviewed:
		return "reviewed"
	case Committed:
		return "committed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Round carries one round's data through seeded, expanded, deduped,
// reviewed and committed, in that order only.
type Round struct {
	Index int
	state State

	Seeds     []types.CandidateRecord
	Raw       []types.CandidateRecord
	Filtered  []types.CandidateRecord
	Unique    []types.CandidateRecord
	Removed   map[string]int
	Decisions []types.Decision
	Meta      types.RoundMeta
	Errors    []string
}

// NewRound starts round index from its seeds.
func NewRound(index int, seeds []types.CandidateRecord) *Round {
	return &Round{Index: index, state: Seeded, Seeds: seeds}
}

// State returns the current state.
func (r *Round) State() State { return r.state }

// advance moves the round to the next state; to must be exactly one step
// ahead.
func (r *Round) advance(to State) error {
	if to != r.state+1 {
		return fmt.Errorf("%w: round %d %s -> %s", ErrIllegalTransition, r.Index, r.state, to)
	}
	r.state = to
	return nil
}
