package overview

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// FlowState is where the client currently is in the logbook flow.
// Rendering is a projection of this state; transitions are pure and each
// one produces a new Context value instead of mutating shared fields.
type FlowState int

const (
	StateSignedOut FlowState = iota
	StateLoading
	StateSessionOverview
	StateExerciseDetail
	StateEditing
)

func (s FlowState) String() string {
	switch s {
	case StateSignedOut:
		return "signed-out"
	case StateLoading:
		return "loading"
	case StateSessionOverview:
		return "session-overview"
	case StateExerciseDetail:
		return "exercise-detail"
	case StateEditing:
		return "editing"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var ErrInvalidTransition = errors.New("invalid flow transition")

// Context is the explicit flow context: who is signed in, which session
// is active, what is selected, what is being edited.
type Context struct {
	State              FlowState `json:"state"`
	UserID             int       `json:"-"`
	SessionIndex       int       `json:"sessionIndex"`
	SelectedExerciseID string    `json:"selectedExerciseId,omitempty"`
	EditingEntryID     uuid.UUID `json:"editingEntryId,omitempty"`
}

// SignedOut is the initial flow context.
func SignedOut() Context {
	return Context{State: StateSignedOut}
}

func (c Context) SignIn(userID int) (Context, error) {
	if c.State != StateSignedOut {
		return c, transitionErr(c.State, "sign in")
	}
	return Context{State: StateLoading, UserID: userID}, nil
}

func (c Context) OverviewLoaded(sessionIndex int) (Context, error) {
	if c.State != StateLoading {
		return c, transitionErr(c.State, "overview loaded")
	}
	return Context{
		State:        StateSessionOverview,
		UserID:       c.UserID,
		SessionIndex: sessionIndex,
	}, nil
}

func (c Context) SelectExercise(exerciseID string) (Context, error) {
	if c.State != StateSessionOverview {
		return c, transitionErr(c.State, "select exercise")
	}
	next := c
	next.State = StateExerciseDetail
	next.SelectedExerciseID = exerciseID
	return next, nil
}

func (c Context) EditEntry(entryID uuid.UUID) (Context, error) {
	if c.State != StateExerciseDetail {
		return c, transitionErr(c.State, "edit entry")
	}
	next := c
	next.State = StateEditing
	next.EditingEntryID = entryID
	return next, nil
}

// SaveFinished returns to the exercise detail after a save or an edit,
// clearing the editing id.
func (c Context) SaveFinished() (Context, error) {
	if c.State != StateExerciseDetail && c.State != StateEditing {
		return c, transitionErr(c.State, "save finished")
	}
	next := c
	next.State = StateExerciseDetail
	next.EditingEntryID = uuid.Nil
	return next, nil
}

// Back steps one level up: editing -> detail -> overview.
func (c Context) Back() (Context, error) {
	switch c.State {
	case StateEditing:
		next := c
		next.State = StateExerciseDetail
		next.EditingEntryID = uuid.Nil
		return next, nil
	case StateExerciseDetail:
		next := c
		next.State = StateSessionOverview
		next.SelectedExerciseID = ""
		return next, nil
	default:
		return c, transitionErr(c.State, "back")
	}
}

// SignOut is valid from any state.
func (c Context) SignOut() Context {
	return SignedOut()
}

func transitionErr(from FlowState, event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, from)
}
