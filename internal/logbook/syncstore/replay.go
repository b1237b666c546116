package syncstore

import (
	"context"
	"errors"
	"time"

	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/pkg"

	log "github.com/sirupsen/logrus"
)

const replayOpTimeout = 10 * time.Second

// replayLoop drains the pending queue in order whenever the db is
// reachable again. The interval backs off while replays keep failing and
// resets on the first success.
func (s *Store) replayLoop() {
	timer := time.NewTimer(s.replayInterval)
	defer timer.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.wakeReplay:
		case <-timer.C:
		}

		s.replayPending()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.replayInterval)
	}
}

// replayPending attempts queued ops oldest-first and stops at the first
// retryable failure to keep the create-before-update order intact.
func (s *Store) replayPending() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		op := s.pending[0]
		s.mu.Unlock()

		if retry := s.replayOp(op); retry {
			s.replayInterval = minDuration(s.replayInterval*2, maxReplayInterval)
			return
		}
		s.replayInterval = minReplayInterval

		s.mu.Lock()
		if head := s.pending[0]; head.version != op.version {
			// the queued create was patched while its snapshot was in
			// flight; the db now holds pre-patch data, so carry the
			// patch forward as an update instead of dropping it
			notes := head.entry.Notes
			s.pending[0] = pendingOp{
				kind:   opUpdate,
				id:     head.entry.ID,
				userID: head.entry.UserID,
				patch: entries.UpdateParams{
					SetGroups: head.entry.SetGroups,
					Notes:     &notes,
				},
			}
		} else {
			s.pending = s.pending[1:]
		}
		remaining := len(s.pending)
		s.mu.Unlock()
		s.metricsManager.GaugePendingSyncOps.Set(float64(remaining))
	}
}

// replayOp returns true when the op failed in a retryable way and must
// stay at the head of the queue.
func (s *Store) replayOp(op pendingOp) (retry bool) {
	ctx, cancel := context.WithTimeout(context.Background(), replayOpTimeout)
	defer cancel()

	switch op.kind {
	case opCreate:
		_, err := s.remote.Add(ctx, op.entry)
		switch {
		case err == nil:
			log.Debugf("syncstore: replayed create %s", op.entry.ID)
			s.metricsManager.CounterSyncOpsReplayed.Inc()
		case pkg.IsUniqueViolationError(err):
			// already applied by an earlier replay attempt
			log.Debugf("syncstore: dropping already applied create %s", op.entry.ID)
			s.metricsManager.CounterSyncOpsDropped.Inc()
		default:
			log.Warnf("syncstore: replay create %s: %s", op.entry.ID, err)
			return true
		}
	case opUpdate:
		err := s.remote.Update(ctx, op.id, op.userID, op.patch)
		switch {
		case err == nil:
			log.Debugf("syncstore: replayed update %s", op.id)
			s.metricsManager.CounterSyncOpsReplayed.Inc()
		case errors.Is(err, entries.ErrEntryNotFound):
			// target entry never materialized, nothing to patch
			log.Warnf("syncstore: dropping update %s, entry not found", op.id)
			s.metricsManager.CounterSyncOpsDropped.Inc()
		default:
			log.Warnf("syncstore: replay update %s: %s", op.id, err)
			return true
		}
	}

	return false
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
