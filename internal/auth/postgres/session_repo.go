// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/ironlog/ironlog/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.UserID, session.TokenHash, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return oops.With("operation", "insert session").With("user_id", session.UserID).Wrap(err)
	}
	return nil
}

// GetWithUser retrieves a session and its user by token hash.
func (r *SessionRepository) GetWithUser(ctx context.Context, tokenHash string) (*auth.SessionRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.created_at, u.email, u.role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
	`, tokenHash)

	var (
		rec  auth.SessionRecord
		role string
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt, &rec.User.Email, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get session by token hash").Wrap(err)
	}
	rec.User.ID = rec.UserID
	if rec.User.Role, err = auth.ParseRole(role); err != nil {
		return nil, oops.With("operation", "get session by token hash").With("session_id", rec.ID).Wrap(err)
	}
	return &rec, nil
}

// DeleteByTokenHash removes a session if present.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return oops.With("operation", "delete session").Wrap(err)
	}
	return nil
}

// DeleteExpired removes sessions expiring at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.With("operation", "delete expired sessions").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
