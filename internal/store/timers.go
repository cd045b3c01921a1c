package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timetrack/internal/models"
)

type TimerStore struct {
	db *sql.DB
}

func NewTimerStore(db *sql.DB) *TimerStore {
	return &TimerStore{db: db}
}

func (s *TimerStore) Create(ctx context.Context, ownerID, description string, start time.Time) (*models.Timer, error) {
	timer := &models.Timer{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Description: description,
		IsActive:    true,
		Start:       start.UnixMilli(),
	}

	query :=
		`INSERT INTO timers (id, user_id, description, is_active, start_ms)
		 VALUES ($1, $2, $3, TRUE, $4)
		 `

	if _, err := s.db.ExecContext(ctx, query,
		timer.ID, timer.OwnerID, timer.Description, timer.Start); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return timer, nil
}

func (s *TimerStore) Get(ctx context.Context, id string) (*models.Timer, error) {
	query :=
		`SELECT id, user_id, description, is_active, start_ms, end_ms, duration_ms
		 FROM timers
		 WHERE id = $1
		 `

	return scanTimer(s.db.QueryRowContext(ctx, query, id))
}

func (s *TimerStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Timer, error) {
	query :=
		`SELECT id, user_id, description, is_active, start_ms, end_ms, duration_ms
		 FROM timers
		 WHERE user_id = $1
		 ORDER BY start_ms
		 `

	return s.list(ctx, query, ownerID)
}

func (s *TimerStore) ListActiveByOwner(ctx context.Context, ownerID string) ([]models.Timer, error) {
	query :=
		`SELECT id, user_id, description, is_active, start_ms, end_ms, duration_ms
		 FROM timers
		 WHERE user_id = $1 AND is_active
		 ORDER BY start_ms
		 `

	return s.list(ctx, query, ownerID)
}

// Stop deactivates a timer owned by ownerID, fixing end and duration from
// the supplied instant. A timer that is already stopped is returned
// unchanged, so the operation is idempotent. Unknown ids, and timers
// belonging to another user, return ErrNotFound.
func (s *TimerStore) Stop(ctx context.Context, id, ownerID string, now time.Time) (*models.Timer, error) {
	query :=
		`UPDATE timers
		 SET is_active = FALSE, end_ms = $3, duration_ms = $3 - start_ms
		 WHERE id = $1 AND user_id = $2 AND is_active
		 RETURNING id, user_id, description, is_active, start_ms, end_ms, duration_ms
		 `

	timer, err := scanTimer(s.db.QueryRowContext(ctx, query, id, ownerID, now.UnixMilli()))
	if !errors.Is(err, ErrNotFound) {
		return timer, err
	}

	// Either the timer never existed, it was already stopped, or it is
	// someone else's; only the second case is a benign no-op.
	timer, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if timer.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return timer, nil
}

func (s *TimerStore) list(ctx context.Context, query string, args ...interface{}) ([]models.Timer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var timers []models.Timer
	for rows.Next() {
		var t models.Timer
		var end, duration sql.NullInt64
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Description, &t.IsActive,
			&t.Start, &end, &duration); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if end.Valid {
			t.End = &end.Int64
		}
		if duration.Valid {
			t.Duration = &duration.Int64
		}
		timers = append(timers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return timers, nil
}

func scanTimer(row *sql.Row) (*models.Timer, error) {
	t := &models.Timer{}
	var end, duration sql.NullInt64

	err := row.Scan(&t.ID, &t.OwnerID, &t.Description, &t.IsActive,
		&t.Start, &end, &duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if end.Valid {
		t.End = &end.Int64
	}
	if duration.Valid {
		t.Duration = &duration.Int64
	}
	return t, nil
}
