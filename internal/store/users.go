package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"timetrack/internal/models"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
	}

	query :=
		`INSERT INTO users (id, username, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.PasswordHash).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, token, created_at FROM users
		 WHERE username = $1
		 `

	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// GetByToken resolves an opaque session token to its user. A user with a
// cleared token is logged out and cannot be resolved.
func (s *UserStore) GetByToken(ctx context.Context, token string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, token, created_at FROM users
		 WHERE token = $1
		 `

	return s.scanUser(s.db.QueryRowContext(ctx, query, token))
}

func (s *UserStore) SetToken(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *UserStore) ClearToken(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET token = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *UserStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var token sql.NullString

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &token, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if token.Valid {
		user.Token = &token.String
	}
	return user, nil
}
