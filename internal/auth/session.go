// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session configuration.
const (
	SessionTokenBytes     = 32
	DefaultSessionTTLDays = 30
)

// Session is a server-side login record. Only the token hash is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session.
func NewSession(userID, tokenHash string, expiresAt time.Time) (*Session, error) {
	if userID == "" {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &Session{
		ID:        ulid.Make().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpiredAt reports whether the session is expired at t. A session whose
// expiry equals t is expired.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.After(t)
}

// SessionRecord is a session joined with the user it belongs to.
type SessionRecord struct {
	Session
	User Identity
}

// Authenticated is the result of a successful session check.
type Authenticated struct {
	Identity
	SessionID string
	ExpiresAt time.Time
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetWithUser retrieves a session and its user by token hash.
	// Returns ErrNotFound if absent.
	GetWithUser(ctx context.Context, tokenHash string) (*SessionRecord, error)

	// DeleteByTokenHash removes a session. Removing a missing session is not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes sessions expiring at or before now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewSessionToken returns a fresh bearer token of SessionTokenBytes random bytes.
func NewSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSessionToken returns the SHA-256 digest of token, unpadded URL-safe base64.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Sessions issues, checks and deletes login sessions.
type Sessions struct {
	repo SessionRepository
	ttl  time.Duration
	now  func() time.Time
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithSessionClock sets the clock used for expiry.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		s.now = now
	}
}

// WithSessionTTLDays sets the session lifetime. Non-positive values are ignored.
func WithSessionTTLDays(days int) SessionsOption {
	return func(s *Sessions) {
		if days > 0 {
			s.ttl = time.Duration(days) * 24 * time.Hour
		}
	}
}

// NewSessions creates a session service over repo.
func NewSessions(repo SessionRepository, opts ...SessionsOption) (*Sessions, error) {
	if repo == nil {
		return nil, oops.Code("SESSIONS_INVALID_CONFIG").Errorf("session repository is required")
	}
	s := &Sessions{
		repo: repo,
		ttl:  DefaultSessionTTLDays * 24 * time.Hour,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of new sessions.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Create starts a session for userID and returns the bearer token.
func (s *Sessions) Create(ctx context.Context, userID string) (string, time.Time, error) {
	token, err := NewSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	session, err := NewSession(userID, HashSessionToken(token), now.Add(s.ttl))
	if err != nil {
		return "", time.Time{}, err
	}
	session.CreatedAt = now
	if err := s.repo.Create(ctx, session); err != nil {
		return "", time.Time{}, storageError("create session", err)
	}
	return token, session.ExpiresAt, nil
}

// Verify resolves token to its user. Expired sessions are deleted on sight.
func (s *Sessions) Verify(ctx context.Context, token string) (*Authenticated, error) {
	if token == "" {
		return nil, oops.Code(CodeSessionInvalid).Errorf("session token is empty")
	}
	tokenHash := HashSessionToken(token)
	record, err := s.repo.GetWithUser(ctx, tokenHash)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeSessionInvalid).Errorf("session not found")
	}
	if err != nil {
		return nil, storageError("get session", err)
	}

	if record.IsExpiredAt(s.now()) {
		if err := s.repo.DeleteByTokenHash(ctx, tokenHash); err != nil {
			return nil, storageError("delete expired session", err)
		}
		return nil, oops.Code(CodeSessionExpired).With("session_id", record.ID).Errorf("session expired")
	}

	return &Authenticated{
		Identity:  record.User,
		SessionID: record.ID,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// DeleteByToken ends the session for token, if any.
func (s *Sessions) DeleteByToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteByTokenHash(ctx, HashSessionToken(token)); err != nil {
		return storageError("delete session", err)
	}
	return nil
}

// SweepExpired removes every expired session and returns how many were removed.
func (s *Sessions) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storageError("delete expired sessions", err)
	}
	return n, nil
}
