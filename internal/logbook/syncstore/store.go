// Package syncstore wraps the entries repo with an offline-tolerant
// at-least-once write discipline: failed writes land in a pending queue
// that a background loop replays once the database recovers, and reads
// are served from a short-lived cache overlaid with the pending ops so
// recent writes stay visible while the database is down.
package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/internal/telemetry/metrics"
	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"
	"github.com/michaellevy/lift-tracker/pkg"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type remote interface {
	Add(ctx context.Context, entry entries.Entry) (*entries.Entry, error)
	Update(ctx context.Context, id uuid.UUID, userID int, patch entries.UpdateParams) error
	QueryRecent(ctx context.Context, userID int, limit int, exerciseID string) ([]entries.Entry, error)
	QueryRange(ctx context.Context, userID int, from, to time.Time) ([]entries.Entry, error)
}

type opKind int

const (
	opCreate opKind = iota
	opUpdate
)

type pendingOp struct {
	kind   opKind
	entry  entries.Entry
	id     uuid.UUID
	userID int
	patch  entries.UpdateParams

	// bumped on every in-place patch; the replay loop uses it to detect
	// that the head op changed while its snapshot was being replayed
	version int
}

const (
	cacheSizeBytes    = 10 * 1024 * 1024
	cacheTTLSeconds   = 60
	minReplayInterval = 5 * time.Second
	maxReplayInterval = 5 * time.Minute
)

type Store struct {
	remote         remote
	cache          *freecache.Cache
	metricsManager *metrics.Manager

	mu      sync.Mutex
	pending []pendingOp

	replayInterval time.Duration
	wakeReplay     chan struct{}
	done           chan struct{}
	closeOnce      sync.Once
}

func New(remote remote, metricsManager *metrics.Manager) *Store {
	s := &Store{
		remote:         remote,
		cache:          freecache.NewCache(cacheSizeBytes),
		metricsManager: metricsManager,
		replayInterval: minReplayInterval,
		wakeReplay:     make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	go s.replayLoop()
	return s
}

// Close stops the background replay loop. Pending ops still queued are
// lost; callers should stop accepting writes first.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Store) Add(ctx context.Context, entry entries.Entry) (_ *entries.Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncstore.add")
	defer func() {
		if !errors.Is(err, entries.ErrQueuedForSync) {
			tracing.EndSpanWithErrCheck(span, err)
		} else {
			span.End()
		}
	}()

	added, err := s.remote.Add(ctx, entry)
	switch {
	case err == nil:
		return added, nil
	case pkg.IsUniqueViolationError(err):
		// the create already reached the db on an earlier attempt
		log.Debugf("syncstore: create %s already applied", entry.ID)
		return &entry, nil
	}

	log.Warnf("syncstore: create %s failed, queueing for replay: %s", entry.ID, err)
	s.enqueue(pendingOp{kind: opCreate, entry: entry})
	return &entry, entries.ErrQueuedForSync
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, userID int, patch entries.UpdateParams) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncstore.update")
	defer func() {
		if !errors.Is(err, entries.ErrQueuedForSync) {
			tracing.EndSpanWithErrCheck(span, err)
		} else {
			span.End()
		}
	}()

	err = s.remote.Update(ctx, id, userID, patch)
	if err == nil {
		return nil
	}

	if errors.Is(err, entries.ErrEntryNotFound) {
		// the target may itself still be a queued create
		if s.patchPendingCreate(id, userID, patch) {
			return entries.ErrQueuedForSync
		}
		return err
	}

	log.Warnf("syncstore: update %s failed, queueing for replay: %s", id, err)
	s.enqueue(pendingOp{kind: opUpdate, id: id, userID: userID, patch: patch})
	return entries.ErrQueuedForSync
}

// QueryRecent serves from the db when possible, falling back to the last
// cached result when the db is unreachable. Pending writes are overlaid
// either way, so a queued save is immediately visible to the next read.
func (s *Store) QueryRecent(ctx context.Context, userID int, limit int, exerciseID string) (_ []entries.Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncstore.queryrecent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte(fmt.Sprintf("recent|%d|%d|%s", userID, limit, exerciseID))

	found, err := s.remote.QueryRecent(ctx, userID, limit, exerciseID)
	if err != nil {
		cached, cacheErr := s.cache.Get(cacheKey)
		if cacheErr != nil {
			return nil, err
		}
		log.Warnf("syncstore: recent query failed, serving cached result: %s", err)
		var fromCache []entries.Entry
		if err := json.Unmarshal(cached, &fromCache); err != nil {
			return nil, fmt.Errorf("unmarshal cached entries: %w", err)
		}
		return s.overlayRecent(fromCache, userID, limit, exerciseID), nil
	}

	if foundJson, err := json.Marshal(found); err == nil {
		if err := s.cache.Set(cacheKey, foundJson, cacheTTLSeconds); err != nil {
			log.Warnf("syncstore: cache recent result: %s", err)
		}
	}

	return s.overlayRecent(found, userID, limit, exerciseID), nil
}

func (s *Store) QueryRange(ctx context.Context, userID int, from, to time.Time) (_ []entries.Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncstore.queryrange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte(fmt.Sprintf("range|%d|%d|%d", userID, from.Unix(), to.Unix()))

	found, err := s.remote.QueryRange(ctx, userID, from, to)
	if err != nil {
		cached, cacheErr := s.cache.Get(cacheKey)
		if cacheErr != nil {
			return nil, err
		}
		log.Warnf("syncstore: range query failed, serving cached result: %s", err)
		var fromCache []entries.Entry
		if err := json.Unmarshal(cached, &fromCache); err != nil {
			return nil, fmt.Errorf("unmarshal cached entries: %w", err)
		}
		return s.overlayRange(fromCache, userID, from, to), nil
	}

	if foundJson, err := json.Marshal(found); err == nil {
		if err := s.cache.Set(cacheKey, foundJson, cacheTTLSeconds); err != nil {
			log.Warnf("syncstore: cache range result: %s", err)
		}
	}

	return s.overlayRange(found, userID, from, to), nil
}

// MostRecent returns the user's newest entry, pending creates included.
func (s *Store) MostRecent(ctx context.Context, userID int) (*entries.Entry, error) {
	found, err := s.QueryRecent(ctx, userID, 1, "")
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, entries.ErrEntryNotFound
	}
	return &found[0], nil
}

// PendingOps returns the current replay queue length.
func (s *Store) PendingOps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Store) enqueue(op pendingOp) {
	s.mu.Lock()
	s.pending = append(s.pending, op)
	queued := len(s.pending)
	s.mu.Unlock()

	s.metricsManager.CounterSyncOpsQueued.Inc()
	s.metricsManager.GaugePendingSyncOps.Set(float64(queued))

	select {
	case s.wakeReplay <- struct{}{}:
	default:
	}
}

// patchPendingCreate applies an update to a queued create with the same
// id, keeping a save-then-edit sequence correct while the db is down.
func (s *Store) patchPendingCreate(id uuid.UUID, userID int, patch entries.UpdateParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pending {
		op := &s.pending[i]
		if op.kind != opCreate || op.entry.ID != id || op.entry.UserID != userID {
			continue
		}
		if patch.SetGroups != nil {
			op.entry.SetGroups = patch.SetGroups
		}
		if patch.Notes != nil {
			op.entry.Notes = *patch.Notes
		}
		op.version++
		return true
	}
	return false
}

func (s *Store) pendingSnapshot() []pendingOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]pendingOp, len(s.pending))
	copy(snapshot, s.pending)
	return snapshot
}

// overlayRecent merges queued writes for the user into a newest-first
// query result.
func (s *Store) overlayRecent(found []entries.Entry, userID int, limit int, exerciseID string) []entries.Entry {
	merged := s.overlayPending(found, userID, func(e entries.Entry) bool {
		return exerciseID == "" || e.ExerciseID == exerciseID
	})
	sortNewestFirst(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (s *Store) overlayRange(found []entries.Entry, userID int, from, to time.Time) []entries.Entry {
	merged := s.overlayPending(found, userID, func(e entries.Entry) bool {
		return !e.CreatedAt.Before(from) && e.CreatedAt.Before(to)
	})
	sortOldestFirst(merged)
	return merged
}

func (s *Store) overlayPending(found []entries.Entry, userID int, match func(entries.Entry) bool) []entries.Entry {
	pending := s.pendingSnapshot()
	if len(pending) == 0 {
		return found
	}

	byID := make(map[uuid.UUID]int, len(found))
	for i, e := range found {
		byID[e.ID] = i
	}

	merged := found
	for _, op := range pending {
		switch op.kind {
		case opCreate:
			if op.entry.UserID != userID || !match(op.entry) {
				continue
			}
			if _, exists := byID[op.entry.ID]; exists {
				continue
			}
			merged = append(merged, op.entry)
			byID[op.entry.ID] = len(merged) - 1
		case opUpdate:
			if op.userID != userID {
				continue
			}
			i, exists := byID[op.id]
			if !exists {
				continue
			}
			if op.patch.SetGroups != nil {
				merged[i].SetGroups = op.patch.SetGroups
			}
			if op.patch.Notes != nil {
				merged[i].Notes = *op.patch.Notes
			}
		}
	}

	return merged
}

func sortNewestFirst(found []entries.Entry) {
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
}

func sortOldestFirst(found []entries.Entry) {
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
}
