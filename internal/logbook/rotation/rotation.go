// Package rotation decides which catalogue session is "current" from
// the user's entry history.
package rotation

import (
	"context"
	"errors"
	"time"

	"github.com/michaellevy/lift-tracker/internal/catalog"
	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type recentEntryGetter interface {
	MostRecent(ctx context.Context, userID int) (*entries.Entry, error)
}

type Rotator struct {
	store   recentEntryGetter
	catalog *catalog.Catalog
	loc     *time.Location
	nowFunc func() time.Time
}

func New(store recentEntryGetter, cat *catalog.Catalog, loc *time.Location) *Rotator {
	return &Rotator{
		store:   store,
		catalog: cat,
		loc:     loc,
		nowFunc: time.Now,
	}
}

// CurrentIndex determines today's session index for the user. Lookup
// failures are not fatal: they are logged and fall back to the first
// session in the rotation.
func (r *Rotator) CurrentIndex(ctx context.Context, userID int) int {
	ctx, span := tracing.GlobalTracer.Start(ctx, "rotation.currentindex")
	defer span.End()

	mostRecent, err := r.store.MostRecent(ctx, userID)
	if err != nil && !errors.Is(err, entries.ErrEntryNotFound) {
		log.Errorf("rotation: most recent entry lookup for user %d: %s", userID, err)
		mostRecent = nil
	}

	index := NextIndex(mostRecent, r.catalog, r.nowFunc(), r.loc)
	span.SetAttributes(attribute.Int("session.index", index))
	return index
}

// NextIndex is the rotation decision: resume today's session, advance to
// the next one after a day off, or start from the top when the history
// gives nothing to go on.
func NextIndex(mostRecent *entries.Entry, cat *catalog.Catalog, now time.Time, loc *time.Location) int {
	if mostRecent == nil {
		return 0
	}

	// entries logged outside session mode do not participate in rotation
	if mostRecent.SessionID == "" {
		return 0
	}

	index, ok := cat.SessionIndex(mostRecent.SessionID)
	if !ok {
		// catalogue changed since the entry was logged
		return 0
	}

	if entries.SameLocalDay(mostRecent.CreatedAt, now, loc) {
		// mid-session today, resume rather than advance
		return index
	}

	return (index + 1) % cat.Len()
}
