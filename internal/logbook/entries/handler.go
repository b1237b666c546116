package entries

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/michaellevy/lift-tracker/internal/auth"
	"github.com/michaellevy/lift-tracker/internal/telemetry/metrics"
	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"
	"github.com/michaellevy/lift-tracker/pkg"

	"github.com/google/uuid"
)

//go:generate mockgen -source=$GOFILE -destination=entries_mocks_test.go -package=entries_test

type entryStore interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	Update(ctx context.Context, id uuid.UUID, userID int, patch UpdateParams) error
	QueryRecent(ctx context.Context, userID int, limit int, exerciseID string) ([]Entry, error)
	QueryRange(ctx context.Context, userID int, from, to time.Time) ([]Entry, error)
}

type UpdateEntryResponse struct {
	UpdatedID string `json:"updatedId"`
	Queued    bool   `json:"queued,omitempty"`
}

type RecentEntriesResponse struct {
	Entries []Entry `json:"entries"`
}

const defaultRecentLimit = 10

type Handler struct {
	store          entryStore
	metricsManager *metrics.Manager
}

func NewHandler(store entryStore, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:          store,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Tracef("new entry, unmarshal json params: %s", err)
		http.Error(w, "add entry failed", http.StatusBadRequest)
		return
	}

	if err := entry.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry.UserID = userID
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	addedEntry, err := handler.store.Add(ctx, entry)
	queued := errors.Is(err, ErrQueuedForSync)
	if err != nil && !queued {
		log.Errorf("failed to add new entry [%s]: %s", entry.ExerciseID, err)
		http.Error(w, "error, failed to add new entry", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterEntriesSaved.Inc()

	addedEntryJson, err := json.Marshal(addedEntry)
	if err != nil {
		log.Errorf("failed to marshal new entry: %s", err)
		http.Error(w, "error, failed to add new entry", http.StatusInternalServerError)
		return
	}

	status := http.StatusCreated
	if queued {
		// accepted, will reach the db on replay
		status = http.StatusAccepted
	}

	log.Debugf("new entry added [queued: %t]: %s", queued, addedEntryJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedEntryJson, status)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "error, id not a uuid", http.StatusBadRequest)
		return
	}

	var patch UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Tracef("update entry, unmarshal json params: %s", err)
		http.Error(w, "update entry failed", http.StatusBadRequest)
		return
	}

	if err := patch.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = handler.store.Update(ctx, id, userID, patch)
	queued := errors.Is(err, ErrQueuedForSync)
	switch {
	case err == nil || queued:
		// fallthrough to response
	case errors.Is(err, ErrEntryNotFound):
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	default:
		log.Errorf("failed to update entry %s: %s", id, err)
		http.Error(w, "error, failed to update entry", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterEntriesUpdated.Inc()

	updateRespJson, err := json.Marshal(UpdateEntryResponse{
		UpdatedID: id.String(),
		Queued:    queued,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if queued {
		status = http.StatusAccepted
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updateRespJson, status)
}

func (handler *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.recent")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	limit := defaultRecentLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	exerciseID := r.URL.Query().Get("exercise_id")

	recent, err := handler.store.QueryRecent(ctx, userID, limit, exerciseID)
	if err != nil {
		log.Errorf("failed to get recent entries [user %d]: %s", userID, err)
		http.Error(w, "failed to get recent entries", http.StatusInternalServerError)
		return
	}

	recentJson, err := json.Marshal(RecentEntriesResponse{Entries: recent})
	if err != nil {
		log.Errorf("failed to marshal recent entries: %s", err)
		http.Error(w, "failed to marshal recent entries", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, recentJson, http.StatusOK)
}

func (handler *Handler) HandleRange(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.range")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid <from> param", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid <to> param", http.StatusBadRequest)
		return
	}

	found, err := handler.store.QueryRange(ctx, userID, from, to)
	if err != nil {
		log.Errorf("failed to get entries range [user %d]: %s", userID, err)
		http.Error(w, "failed to get entries range", http.StatusInternalServerError)
		return
	}

	foundJson, err := json.Marshal(RecentEntriesResponse{Entries: found})
	if err != nil {
		log.Errorf("failed to marshal entries range: %s", err)
		http.Error(w, "failed to marshal entries range", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, foundJson, http.StatusOK)
}
