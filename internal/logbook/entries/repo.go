package entries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrEntryNotFound = errors.New("entry not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	setsJson, err := json.Marshal(entry.SetGroups)
	if err != nil {
		return nil, fmt.Errorf("marshal set groups: %w", err)
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO entry
				(id, user_id, exercise_id, session_id, sets, notes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id;`,
		entry.ID, entry.UserID, entry.ExerciseID, entry.SessionID, setsJson, entry.Notes, entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id uuid.UUID
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.String("entry.id", id.String()))

	entry.ID = id
	return &entry, nil
}

// Update patches an existing entry's set groups and/or notes. Everything
// else about the entry is immutable.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, userID int, patch UpdateParams) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	var setsJson []byte
	if patch.SetGroups != nil {
		setsJson, err = json.Marshal(patch.SetGroups)
		if err != nil {
			return fmt.Errorf("marshal set groups: %w", err)
		}
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE entry SET
				sets = COALESCE($1, sets),
				notes = COALESCE($2, notes)
			WHERE id = $3 AND user_id = $4;`,
		setsJson, patch.Notes, id, userID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID, userID int) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, exercise_id, session_id, sets, notes, created_at
			FROM entry
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	found, err := r.rows2entries(rows)
	if err != nil {
		return nil, err
	}

	if len(found) != 1 {
		return nil, ErrEntryNotFound
	}

	return &found[0], nil
}

// QueryRecent returns the user's newest entries, newest first, optionally
// narrowed to a single exercise.
func (r *Repo) QueryRecent(ctx context.Context, userID int, limit int, exerciseID string) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.queryrecent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit))
	span.SetAttributes(attribute.String("exercise_id", exerciseID))

	if limit < 1 {
		return nil, errors.New("limit must be greater than 0")
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, exercise_id, session_id, sets, notes, created_at
			FROM entry
			WHERE user_id = $1
			AND ($2::text = '' OR exercise_id = $2)
			ORDER BY created_at DESC
			LIMIT $3;`,
		userID, exerciseID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2entries(rows)
}

// QueryRange returns the user's entries within [from, to), oldest first.
func (r *Repo) QueryRange(ctx context.Context, userID int, from, to time.Time) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.queryrange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("from", from.String()))
	span.SetAttributes(attribute.String("to", to.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, exercise_id, session_id, sets, notes, created_at
			FROM entry
			WHERE user_id = $1
			AND created_at >= $2 AND created_at < $3
			ORDER BY created_at ASC;`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2entries(rows)
}

// MostRecent returns the user's single newest entry, or ErrEntryNotFound
// for an empty history.
func (r *Repo) MostRecent(ctx context.Context, userID int) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.mostrecent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	found, err := r.QueryRecent(ctx, userID, 1, "")
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrEntryNotFound
	}
	return &found[0], nil
}

func (r *Repo) rows2entries(rows pgx.Rows) ([]Entry, error) {
	var found []Entry
	for rows.Next() {
		var id uuid.UUID
		var userID int
		var exerciseID string
		var sessionID string
		var setsBytes []byte
		var notes string
		var createdAt time.Time
		if err := rows.Scan(&id, &userID, &exerciseID, &sessionID, &setsBytes, &notes, &createdAt); err != nil {
			return nil, err
		}

		e := Entry{
			ID:         id,
			UserID:     userID,
			ExerciseID: exerciseID,
			SessionID:  sessionID,
			Notes:      notes,
			CreatedAt:  createdAt,
		}

		if len(setsBytes) > 0 {
			if err := json.Unmarshal(setsBytes, &e.SetGroups); err != nil {
				return nil, fmt.Errorf("unmarshal set groups for entry %s: %w", id, err)
			}
		}

		found = append(found, e)
	}

	if found == nil {
		found = make([]Entry, 0)
	}

	return found, nil
}
