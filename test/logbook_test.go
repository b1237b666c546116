package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaellevy/lift-tracker/internal/logbook/autofill"
	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/internal/logbook/overview"
)

func (s *IntegrationTestSuite) deleteAllEntries(ctx context.Context) {
	_, err := s.dbPool.Exec(ctx, "DELETE FROM entry")
	require.NoError(s.T(), err)
}

func (s *IntegrationTestSuite) logbookRequest(
	ctx context.Context,
	method, path, token string,
	body []byte,
) *http.Response {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		method, fmt.Sprintf("%s%s", serverEndpoint, path),
		bodyReader,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-LIFTS-TOKEN", token)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	return resp
}

func (s *IntegrationTestSuite) addEntryRequest(
	ctx context.Context,
	token string,
	entry entries.Entry,
) entries.Entry {
	entryJson, err := json.Marshal(entry)
	require.NoError(s.T(), err)

	resp := s.logbookRequest(ctx, "POST", "/logbook/entries", token, entryJson)
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var addedEntry entries.Entry
	require.NoError(s.T(), json.Unmarshal(respBytes, &addedEntry))

	return addedEntry
}

func (s *IntegrationTestSuite) getOverview(ctx context.Context, token string) overview.Overview {
	resp := s.logbookRequest(ctx, "GET", "/logbook/overview", token, nil)
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var ov overview.Overview
	require.NoError(s.T(), json.Unmarshal(respBytes, &ov))
	return ov
}

func (s *IntegrationTestSuite) TestLogbook_Unauthorized() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/logbook/overview", serverEndpoint), nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestLogbook_Catalog() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := doLogin(ctx, t)

	resp := s.logbookRequest(ctx, "GET", "/logbook/catalog", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var catalogResp overview.CatalogResponse
	require.NoError(t, json.Unmarshal(respBytes, &catalogResp))
	require.Len(t, catalogResp.Sessions, 3)
	assert.Equal(t, "upper_a", catalogResp.Sessions[0].ID)
	assert.NotEmpty(t, catalogResp.Exercises)
}

func (s *IntegrationTestSuite) TestLogbook_EntryLifecycle() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllEntries(ctx)
	token := doLogin(ctx, t)

	// no history yet, rotation starts at the first session
	ov := s.getOverview(ctx, token)
	assert.Equal(t, 0, ov.SessionIndex)
	assert.Equal(t, "upper_a", ov.SessionID)
	require.Len(t, ov.Slots, 7)
	for _, slot := range ov.Slots {
		assert.False(t, slot.Done)
	}
	assert.Empty(t, ov.RecentSessions)

	addedEntry := s.addEntryRequest(ctx, token, entries.Entry{
		ExerciseID: "box_jumps",
		SessionID:  "upper_a",
		SetGroups: []entries.SetGroup{
			{Sets: 3, Reps: 5, Weight: 0},
		},
	})
	assert.NotEqual(t, uuid.Nil, addedEntry.ID)
	assert.False(t, addedEntry.CreatedAt.IsZero())

	// same local day, the started session is resumed and the slot shows done
	ov = s.getOverview(ctx, token)
	assert.Equal(t, "upper_a", ov.SessionID)
	assert.True(t, ov.Slots[0].Done)
	assert.False(t, ov.Slots[1].Done)
	require.Len(t, ov.RecentSessions, 1)
	assert.Equal(t, "upper_a", ov.RecentSessions[0].SessionID)
	assert.Equal(t, 0, ov.RecentSessions[0].DaysAgo)

	// patch the notes, keep the sets
	patchJson, err := json.Marshal(map[string]any{"notes": "felt springy"})
	require.NoError(t, err)
	resp := s.logbookRequest(ctx, "PUT", fmt.Sprintf("/logbook/entries/%s", addedEntry.ID), token, patchJson)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var updateResp entries.UpdateEntryResponse
	require.NoError(t, json.Unmarshal(respBytes, &updateResp))
	assert.Equal(t, addedEntry.ID.String(), updateResp.UpdatedID)
	assert.False(t, updateResp.Queued)

	// history for the exercise reflects the patch
	resp = s.logbookRequest(ctx, "GET", "/logbook/entries/recent?exercise_id=box_jumps", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var recentResp entries.RecentEntriesResponse
	require.NoError(t, json.Unmarshal(respBytes, &recentResp))
	require.Len(t, recentResp.Entries, 1)
	assert.Equal(t, addedEntry.ID, recentResp.Entries[0].ID)
	assert.Equal(t, "felt springy", recentResp.Entries[0].Notes)
	require.Len(t, recentResp.Entries[0].SetGroups, 1)
	assert.Equal(t, 5, recentResp.Entries[0].SetGroups[0].Reps)

	// updating a non-existent entry is a 404
	resp = s.logbookRequest(ctx, "PUT", fmt.Sprintf("/logbook/entries/%s", uuid.New()), token, patchJson)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	// the entry is also visible through a time range query
	rangeQuery := url.Values{}
	rangeQuery.Set("from", time.Now().Add(-time.Hour).Format(time.RFC3339))
	rangeQuery.Set("to", time.Now().Add(time.Hour).Format(time.RFC3339))
	resp = s.logbookRequest(ctx, "GET", fmt.Sprintf("/logbook/entries/range?%s", rangeQuery.Encode()), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var rangeResp entries.RecentEntriesResponse
	require.NoError(t, json.Unmarshal(respBytes, &rangeResp))
	require.Len(t, rangeResp.Entries, 1)
	assert.Equal(t, addedEntry.ID, rangeResp.Entries[0].ID)
}

func (s *IntegrationTestSuite) TestLogbook_Autofill() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllEntries(ctx)
	token := doLogin(ctx, t)

	// no history: scheme comes from the prescription, no weight suggestion
	resp := s.logbookRequest(ctx, "GET", "/logbook/sessions/upper_a/slots/1/autofill", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var suggestion autofill.Suggestion
	require.NoError(t, json.Unmarshal(respBytes, &suggestion))
	assert.Equal(t, "barbell_bench_press", suggestion.ExerciseID)
	assert.True(t, suggestion.HasScheme)
	assert.Equal(t, 3, suggestion.Sets)
	assert.Equal(t, 8, suggestion.Reps)
	assert.False(t, suggestion.HasWeight)

	s.addEntryRequest(ctx, token, entries.Entry{
		ExerciseID: "barbell_bench_press",
		SessionID:  "upper_a",
		SetGroups: []entries.SetGroup{
			{Sets: 3, Reps: 8, Weight: 80},
		},
	})

	// with history, the last used weight comes back too
	resp = s.logbookRequest(ctx, "GET", "/logbook/sessions/upper_a/slots/1/autofill", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.NoError(t, json.Unmarshal(respBytes, &suggestion))
	assert.True(t, suggestion.HasWeight)
	assert.Equal(t, 80., suggestion.Weight)

	// a choice slot needs an explicit pick
	resp = s.logbookRequest(ctx, "GET", "/logbook/sessions/lower/slots/3/autofill", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = s.logbookRequest(ctx, "GET", "/logbook/sessions/lower/slots/3/autofill?exercise_id=hip_abduction", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.NoError(t, json.Unmarshal(respBytes, &suggestion))
	assert.Equal(t, "hip_abduction", suggestion.ExerciseID)
	assert.True(t, suggestion.HasScheme)
	assert.Equal(t, 3, suggestion.Sets)
	assert.Equal(t, 15, suggestion.Reps)
}

func (s *IntegrationTestSuite) TestLogbook_RecentSessions() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllEntries(ctx)
	token := doLogin(ctx, t)

	s.addEntryRequest(ctx, token, entries.Entry{
		ExerciseID: "trap_bar_deadlift",
		SessionID:  "lower",
		SetGroups: []entries.SetGroup{
			{Sets: 3, Reps: 5, Weight: 120},
		},
	})

	resp := s.logbookRequest(ctx, "GET", "/logbook/sessions/recent", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var sessionsResp overview.RecentSessionsResponse
	require.NoError(t, json.Unmarshal(respBytes, &sessionsResp))
	require.Len(t, sessionsResp.Sessions, 1)
	assert.Equal(t, "lower", sessionsResp.Sessions[0].SessionID)
	assert.Equal(t, "today", sessionsResp.Sessions[0].Label)
}
