// Package completion derives which exercises of the active session are
// already done today.
package completion

import (
	"time"

	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
)

// Set is the exercise ids completed on a given day.
type Set map[string]struct{}

func (s Set) Contains(exerciseID string) bool {
	_, ok := s[exerciseID]
	return ok
}

// MarkDone adds an exercise after a successful save, so the overview
// updates optimistically without a re-query.
func (s Set) MarkDone(exerciseID string) {
	s[exerciseID] = struct{}{}
}

// Completed computes the completion set from a day's entries: any entry
// with a timestamp on today's local date contributes its exercise id.
func Completed(dayEntries []entries.Entry, today time.Time, loc *time.Location) Set {
	done := make(Set, len(dayEntries))
	for _, e := range dayEntries {
		if !entries.SameLocalDay(e.CreatedAt, today, loc) {
			continue
		}
		done.MarkDone(e.ExerciseID)
	}
	return done
}
