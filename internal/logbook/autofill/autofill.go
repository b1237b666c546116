// Package autofill pre-fills the entry form: sets/reps from the slot's
// prescription string, weight from the exercise's recent history.
package autofill

import (
	"context"
	"sync"

	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/internal/logbook/syncstore"
	"github.com/michaellevy/lift-tracker/internal/rx"
	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// historyLimit is how far back the weight suggestion looks.
const historyLimit = 5

type historyQuerier interface {
	QueryRecent(ctx context.Context, userID int, limit int, exerciseID string) ([]entries.Entry, error)
}

// Suggestion carries the pre-fill values for a just-selected exercise.
// HasWeight distinguishes "no history" from an actual zero weight, so an
// empty history never fills the form with a misleading default.
type Suggestion struct {
	ExerciseID string  `json:"exerciseId"`
	Sets       int     `json:"sets,omitempty"`
	Reps       int     `json:"reps,omitempty"`
	HasScheme  bool    `json:"hasScheme"`
	Weight     float64 `json:"weight,omitempty"`
	HasWeight  bool    `json:"hasWeight"`
}

type Engine struct {
	store historyQuerier

	mu           sync.Mutex
	readContexts map[int]*syncstore.ReadContext
}

func New(store historyQuerier) *Engine {
	return &Engine{
		store:        store,
		readContexts: make(map[int]*syncstore.ReadContext),
	}
}

// Suggest produces the pre-fill for an exercise with the given
// prescription. Sets/reps come from the prescription alone; the weight
// comes from the first set group of the most recent history entry. A
// history lookup failure only costs the weight suggestion. When the user
// switches exercises before the history arrives, the outdated result is
// dropped with syncstore.ErrStaleContext.
func (e *Engine) Suggest(ctx context.Context, userID int, exerciseID, rxStr string) (_ Suggestion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "autofill.suggest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_id", exerciseID))

	suggestion := Suggestion{ExerciseID: exerciseID}

	if scheme, ok := rx.Parse(rxStr); ok {
		suggestion.Sets = scheme.MaxSets
		suggestion.Reps = scheme.MaxReps
		suggestion.HasScheme = true
	} else if rxStr != "" {
		log.Tracef("autofill: unparseable rx %q, skipping scheme pre-fill", rxStr)
	}

	readCtx := e.readContext(userID)
	readID := readCtx.Next()

	history, err := e.store.QueryRecent(ctx, userID, historyLimit, exerciseID)
	if err != nil {
		log.Warnf("autofill: history lookup [%s] for user %d: %s", exerciseID, userID, err)
		return suggestion, nil
	}

	if !readCtx.StillCurrent(readID) {
		return Suggestion{}, syncstore.ErrStaleContext
	}

	if len(history) > 0 && len(history[0].SetGroups) > 0 {
		suggestion.Weight = history[0].SetGroups[0].Weight
		suggestion.HasWeight = true
	}

	return suggestion, nil
}

func (e *Engine) readContext(userID int) *syncstore.ReadContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	rc, ok := e.readContexts[userID]
	if !ok {
		rc = &syncstore.ReadContext{}
		e.readContexts[userID] = rc
	}
	return rc
}
