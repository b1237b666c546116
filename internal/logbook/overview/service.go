// Package overview composes the rotation, completion and recent-session
// lookups into the session-overview projection the client renders.
package overview

import (
	"context"
	"time"

	"github.com/michaellevy/lift-tracker/internal/catalog"
	"github.com/michaellevy/lift-tracker/internal/logbook/completion"
	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// recentSessionsLimit is how far back the distinct-session lookup scans.
const recentSessionsLimit = 50

type entryQuerier interface {
	QueryRecent(ctx context.Context, userID int, limit int, exerciseID string) ([]entries.Entry, error)
	QueryRange(ctx context.Context, userID int, from, to time.Time) ([]entries.Entry, error)
}

type indexDecider interface {
	CurrentIndex(ctx context.Context, userID int) int
}

// SlotView is a catalogue slot decorated with today's completion state.
// A choice slot counts as done when any of its choices was done today.
type SlotView struct {
	catalog.SessionSlot
	Done bool `json:"done"`
}

type Overview struct {
	SessionIndex   int                    `json:"sessionIndex"`
	SessionID      string                 `json:"sessionId"`
	SessionName    string                 `json:"sessionName"`
	Slots          []SlotView             `json:"slots"`
	RecentSessions []entries.SessionStamp `json:"recentSessions"`
}

type Service struct {
	store   entryQuerier
	rotator indexDecider
	catalog *catalog.Catalog
	loc     *time.Location
	nowFunc func() time.Time
}

func NewService(store entryQuerier, rotator indexDecider, cat *catalog.Catalog, loc *time.Location) *Service {
	return &Service{
		store:   store,
		rotator: rotator,
		catalog: cat,
		loc:     loc,
		nowFunc: time.Now,
	}
}

// Overview builds the projection for the user's active session. Lookup
// failures degrade the projection (no checkmarks, no recent sessions)
// instead of failing it.
func (s *Service) Overview(ctx context.Context, userID int) *Overview {
	ctx, span := tracing.GlobalTracer.Start(ctx, "overview.build")
	defer span.End()

	index := s.rotator.CurrentIndex(ctx, userID)
	session := s.catalog.Sessions[index]
	span.SetAttributes(attribute.String("session.id", session.ID))

	now := s.nowFunc()
	done := s.todaysCompletion(ctx, userID, now)

	slots := make([]SlotView, 0, len(session.Slots))
	for _, slot := range session.Slots {
		slotDone := false
		for _, exerciseID := range slot.ExerciseIDs() {
			if done.Contains(exerciseID) {
				slotDone = true
				break
			}
		}
		slots = append(slots, SlotView{SessionSlot: slot, Done: slotDone})
	}

	return &Overview{
		SessionIndex:   index,
		SessionID:      session.ID,
		SessionName:    session.Name,
		Slots:          slots,
		RecentSessions: s.recentSessions(ctx, userID, now),
	}
}

func (s *Service) todaysCompletion(ctx context.Context, userID int, now time.Time) completion.Set {
	local := now.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	// next calendar midnight, not midnight+24h: DST days are 23 or 25
	// hours long
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.loc)

	today, err := s.store.QueryRange(ctx, userID, midnight, tomorrow)
	if err != nil {
		log.Errorf("overview: today's entries for user %d: %s", userID, err)
		return completion.Set{}
	}
	return completion.Completed(today, now, s.loc)
}

func (s *Service) recentSessions(ctx context.Context, userID int, now time.Time) []entries.SessionStamp {
	recent, err := s.store.QueryRecent(ctx, userID, recentSessionsLimit, "")
	if err != nil {
		log.Errorf("overview: recent entries for user %d: %s", userID, err)
		return []entries.SessionStamp{}
	}
	return entries.RecentSessions(recent, now, s.loc)
}
