package entries

import (
	"fmt"
	"time"
)

const maxRecentSessions = 3

// SessionStamp is one recently performed session, annotated with how many
// local calendar days ago it happened.
type SessionStamp struct {
	SessionID string `json:"sessionId"`
	DaysAgo   int    `json:"daysAgo"`
	Label     string `json:"label"`
}

// RecentSessions derives the distinct recently performed sessions from a
// newest-first entry list: most-recent-first, capped at three distinct
// sessions. Entries logged outside session mode are skipped.
func RecentSessions(recent []Entry, now time.Time, loc *time.Location) []SessionStamp {
	seen := make(map[string]bool, maxRecentSessions)
	stamps := make([]SessionStamp, 0, maxRecentSessions)
	for _, e := range recent {
		if e.SessionID == "" || seen[e.SessionID] {
			continue
		}
		seen[e.SessionID] = true

		daysAgo := daysBetween(e.CreatedAt, now, loc)
		stamps = append(stamps, SessionStamp{
			SessionID: e.SessionID,
			DaysAgo:   daysAgo,
			Label:     daysAgoLabel(daysAgo),
		})
		if len(stamps) == maxRecentSessions {
			break
		}
	}
	return stamps
}

// daysBetween counts local-midnight boundaries between two instants.
func daysBetween(from, to time.Time, loc *time.Location) int {
	f := from.In(loc)
	t := to.In(loc)
	fromMidnight := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
	toMidnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return int(toMidnight.Sub(fromMidnight).Hours() / 24)
}

func daysAgoLabel(daysAgo int) string {
	switch daysAgo {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", daysAgo)
	}
}

// SameLocalDay reports whether two instants fall on the same local
// calendar date.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
