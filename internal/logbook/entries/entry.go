package entries

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrQueuedForSync signals that a write could not reach the database and
// was queued for background replay instead. The write is accepted, not
// failed; callers surface it as such.
var ErrQueuedForSync = errors.New("entry queued for sync")

// SetGroup is one line of an entry: N sets of M reps at a weight.
type SetGroup struct {
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

func (sg SetGroup) Validate() error {
	if sg.Sets < 1 {
		return fmt.Errorf("sets must be at least 1, got %d", sg.Sets)
	}
	if sg.Reps < 1 {
		return fmt.Errorf("reps must be at least 1, got %d", sg.Reps)
	}
	if sg.Weight < 0 {
		return fmt.Errorf("weight must not be negative, got %f", sg.Weight)
	}
	return nil
}

// Entry is one logged exercise performance. IDs are client-suppliable
// UUIDs so that entries created while offline keep a stable identity
// across replays; the server generates one when absent. SessionID is set
// only when the entry was logged from within a session, and is used
// solely for rotation bookkeeping.
type Entry struct {
	ID         uuid.UUID  `json:"id"`
	UserID     int        `json:"-"`
	ExerciseID string     `json:"exerciseId"`
	SessionID  string     `json:"sessionId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	SetGroups  []SetGroup `json:"sets"`
	Notes      string     `json:"notes,omitempty"`
}

func (e Entry) Validate() error {
	if e.ExerciseID == "" {
		return errors.New("exercise id empty")
	}
	if len(e.SetGroups) == 0 {
		return errors.New("entry needs at least one set group")
	}
	for i, sg := range e.SetGroups {
		if err := sg.Validate(); err != nil {
			return fmt.Errorf("set group %d: %w", i, err)
		}
	}
	return nil
}

// UpdateParams is a partial update of an existing entry: only the set
// groups and notes are mutable, never the id, timestamp, exercise or
// session. Nil fields are left untouched.
type UpdateParams struct {
	SetGroups []SetGroup `json:"sets,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

func (p UpdateParams) Validate() error {
	if p.SetGroups == nil && p.Notes == nil {
		return errors.New("empty update")
	}
	for i, sg := range p.SetGroups {
		if err := sg.Validate(); err != nil {
			return fmt.Errorf("set group %d: %w", i, err)
		}
	}
	return nil
}
