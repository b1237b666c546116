package overview

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
	"github.com/michaellevy/lift-tracker/internal/catalog"
	"github.com/michaellevy/lift-tracker/internal/logbook/autofill"
	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/internal/logbook/syncstore"
	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"
	"github.com/michaellevy/lift-tracker/pkg"
)

type suggester interface {
	Suggest(ctx context.Context, userID int, exerciseID, rxStr string) (autofill.Suggestion, error)
}

type CatalogResponse struct {
	Exercises []catalog.Exercise `json:"exercises"`
	Sessions  []catalog.Session  `json:"sessions"`
}

type RecentSessionsResponse struct {
	Sessions []entries.SessionStamp `json:"sessions"`
}

type Handler struct {
	service  *Service
	engine   suggester
	catalog  *catalog.Catalog
	querier  entryQuerier
	location *time.Location
}

func NewHandler(
	service *Service,
	engine suggester,
	cat *catalog.Catalog,
	querier entryQuerier,
	loc *time.Location,
) *Handler {
	return &Handler{
		service:  service,
		engine:   engine,
		catalog:  cat,
		querier:  querier,
		location: loc,
	}
}

func (handler *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overview.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	ov := handler.service.Overview(ctx, userID)

	ovJson, err := json.Marshal(ov)
	if err != nil {
		log.Errorf("failed to marshal overview: %s", err)
		http.Error(w, "failed to marshal overview", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, ovJson, http.StatusOK)
}

func (handler *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.overview.catalog")
	defer span.End()

	catJson, err := json.Marshal(CatalogResponse{
		Exercises: handler.catalog.Exercises,
		Sessions:  handler.catalog.Sessions,
	})
	if err != nil {
		log.Errorf("failed to marshal catalog: %s", err)
		http.Error(w, "failed to marshal catalog", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, catJson, http.StatusOK)
}

// HandleAutofill resolves a session slot to an exercise + prescription
// and returns the pre-fill suggestion for it. Choice slots take the
// picked exercise via the exercise_id query param.
func (handler *Handler) HandleAutofill(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overview.autofill")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	session, ok := handler.catalog.SessionByID(vars["sid"])
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	slotIndex, err := strconv.Atoi(vars["idx"])
	if err != nil || slotIndex < 0 || slotIndex >= len(session.Slots) {
		http.Error(w, "invalid slot index", http.StatusBadRequest)
		return
	}
	slot := session.Slots[slotIndex]

	exerciseID := r.URL.Query().Get("exercise_id")
	if exerciseID == "" {
		if slot.IsChoice() {
			http.Error(w, "choice slot needs <exercise_id> param", http.StatusBadRequest)
			return
		}
		exerciseID = slot.ExerciseID
	}

	rxStr, ok := slot.RxFor(exerciseID)
	if !ok {
		http.Error(w, "exercise not in slot", http.StatusBadRequest)
		return
	}

	suggestion, err := handler.engine.Suggest(ctx, userID, exerciseID, rxStr)
	if err != nil {
		if errors.Is(err, syncstore.ErrStaleContext) {
			// a newer suggestion request superseded this one
			http.Error(w, "superseded by a newer request", http.StatusConflict)
			return
		}
		log.Errorf("failed to build autofill suggestion [%s]: %s", exerciseID, err)
		http.Error(w, "failed to build suggestion", http.StatusInternalServerError)
		return
	}

	suggestionJson, err := json.Marshal(suggestion)
	if err != nil {
		log.Errorf("failed to marshal suggestion: %s", err)
		http.Error(w, "failed to marshal suggestion", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, suggestionJson, http.StatusOK)
}

func (handler *Handler) HandleRecentSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overview.recentsessions")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	recent, err := handler.querier.QueryRecent(ctx, userID, recentSessionsLimit, "")
	if err != nil {
		log.Errorf("failed to get recent entries for user %d: %s", userID, err)
		http.Error(w, "failed to get recent sessions", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(RecentSessionsResponse{
		Sessions: entries.RecentSessions(recent, time.Now(), handler.location),
	})
	if err != nil {
		log.Errorf("failed to marshal recent sessions: %s", err)
		http.Error(w, "failed to marshal recent sessions", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}
