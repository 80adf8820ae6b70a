// Package wizard is the seven-step tenant onboarding state machine. A State
// is a value: Next, Prev and Submit return a new State and never touch the
// receiver, so validation is a pure function of the snapshot.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pg-backend/availability"
	"pg-backend/models"
)

const TotalSteps = 7

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

var ErrNotFinalStep = errors.New("submit is only allowed on the final step")

// ValidationError carries every message that blocked a transition.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Env is what validators may look at besides the form itself.
type Env struct {
	Now   func() time.Time
	Index *availability.Index
	// PropertyMissing is set when the selected property does not exist.
	PropertyMissing bool
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

type State struct {
	Step   int      `json:"step"`
	Mode   Mode     `json:"mode"`
	Values Form     `json:"values"`
	Errors []string `json:"errors"`
	// Original is the tenant's room before this edit; nil in create mode.
	Original *models.RoomRef `json:"originalRoom,omitempty"`
}

func NewState() State {
	return State{Step: 1, Mode: ModeCreate, Errors: []string{}}
}

// NewEditState starts an edit of t at step 1 with its current room remembered.
func NewEditState(t *models.Tenant) State {
	room := t.Room()
	return State{
		Step:     1,
		Mode:     ModeEdit,
		Values:   FormFromTenant(t),
		Errors:   []string{},
		Original: &room,
	}
}

// Normalize clamps a client supplied state into a valid one.
func (s State) Normalize() State {
	if s.Step < 1 {
		s.Step = 1
	}
	if s.Step > TotalSteps {
		s.Step = TotalSteps
	}
	if s.Mode != ModeEdit {
		s.Mode = ModeCreate
		s.Original = nil
	}
	if s.Errors == nil {
		s.Errors = []string{}
	}
	return s
}

func (s State) IsFinal() bool {
	return s.Step == TotalSteps
}

// Next validates the current step and advances when it is clean.
func (s State) Next(env Env) State {
	errs := ValidateStep(s, s.Step, env)
	out := s
	if len(errs) > 0 {
		out.Errors = errs
		return out
	}
	out.Errors = []string{}
	if out.Step < TotalSteps {
		out.Step++
	}
	return out
}

func (s State) Prev() State {
	out := s
	if out.Step > 1 {
		out.Step--
	}
	out.Errors = []string{}
	return out
}

// Submit re-runs every step plus the form schema. On failure the returned
// state carries the same messages as the *ValidationError.
func (s State) Submit(env Env) (State, error) {
	if !s.IsFinal() {
		return s, ErrNotFinalStep
	}
	var all []string
	for step := 1; step <= TotalSteps; step++ {
		for _, msg := range ValidateStep(s, step, env) {
			all = append(all, fmt.Sprintf("Step %d: %s", step, msg))
		}
	}
	all = append(all, SchemaErrors(s.Values)...)

	out := s
	if len(all) > 0 {
		out.Errors = all
		return out, &ValidationError{Messages: all}
	}
	out.Errors = []string{}
	return out, nil
}

// WithSelectedFloor applies a floor pick from the index; room and room type
// are cleared.
func (s State) WithSelectedFloor(ix *availability.Index, floor int) (State, error) {
	sel, err := ix.SelectFloor(floor)
	if err != nil {
		return s, err
	}
	out := s
	out.Values.PropertyID = ix.PropertyID
	out.Values.Floor = sel.Floor
	out.Values.RoomNumber = sel.RoomNumber
	out.Values.RoomType = sel.RoomType
	return out, nil
}

// WithSelectedRoom applies a room pick on the selected floor; the room type
// follows the room.
func (s State) WithSelectedRoom(ix *availability.Index, roomNo string) (State, error) {
	sel, err := ix.SelectRoom(availability.Selection{Floor: s.Values.Floor, RoomType: s.Values.RoomType}, roomNo)
	if err != nil {
		return s, err
	}
	out := s
	out.Values.Floor = sel.Floor
	out.Values.RoomNumber = sel.RoomNumber
	out.Values.RoomType = sel.RoomType
	return out, nil
}
