// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

// Package memory implements the auth directory in process memory for
// development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/ironlog/ironlog/internal/auth"
)

// Store holds users, sessions and invites behind one lock.
type Store struct {
	mu       sync.Mutex
	users    map[string]*auth.User // by id
	sessions map[string]*auth.Session
	invites  map[string]*auth.Invite
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]*auth.User),
		sessions: make(map[string]*auth.Session),
		invites:  make(map[string]*auth.Invite),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{s: s} }

// Invites returns the invite repository view of the store.
func (s *Store) Invites() *InviteRepo { return &InviteRepo{s: s} }

var (
	_ auth.UserRepository    = (*UserRepo)(nil)
	_ auth.SessionRepository = (*SessionRepo)(nil)
	_ auth.InviteRepository  = (*InviteRepo)(nil)
	_ auth.InviteRedeemer    = (*InviteRepo)(nil)
)

// userByEmail scans for a user. Caller holds mu.
func (s *Store) userByEmail(email string) *auth.User {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// insertUser adds a copy of u. Caller holds mu.
func (s *Store) insertUser(u *auth.User) error {
	if s.userByEmail(u.Email) != nil {
		return auth.ErrEmailTaken
	}
	if _, ok := s.users[u.ID]; ok {
		return oops.With("user_id", u.ID).Errorf("duplicate user id")
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// --- UserRepository ---

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	s *Store
}

// Count returns the number of users.
func (r *UserRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.userByEmail(email)
	if u == nil {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Create inserts a user.
func (r *UserRepo) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertUser(user)
}

// UpdatePasswordHash replaces a user's password hash.
func (r *UserRepo) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// --- SessionRepository ---

// SessionRepo implements auth.SessionRepository.
type SessionRepo struct {
	s *Store
}

// Create stores a session.
func (r *SessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[session.UserID]; !ok {
		return oops.With("user_id", session.UserID).Errorf("session references unknown user")
	}
	cp := *session
	r.s.sessions[session.TokenHash] = &cp
	return nil
}

// GetWithUser returns a session joined with its user.
func (r *SessionRepo) GetWithUser(_ context.Context, tokenHash string) (*auth.SessionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	u, ok := r.s.users[sess.UserID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &auth.SessionRecord{Session: *sess, User: u.Identity()}, nil
}

// DeleteByTokenHash removes a session if present.
func (r *SessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, tokenHash)
	return nil
}

// DeleteExpired removes sessions expiring at or before now.
func (r *SessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for hash, sess := range r.s.sessions {
		if sess.IsExpiredAt(now) {
			delete(r.s.sessions, hash)
			n++
		}
	}
	return n, nil
}

// --- InviteRepository ---

// InviteRepo implements auth.InviteRepository and auth.InviteRedeemer.
type InviteRepo struct {
	s *Store
}

// Create stores an invite.
func (r *InviteRepo) Create(_ context.Context, invite *auth.Invite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invites {
		if existing.CodeHash == invite.CodeHash {
			return oops.Errorf("duplicate invite code")
		}
	}
	cp := *invite
	r.s.invites[invite.ID] = &cp
	return nil
}

// ListPending returns pending invites, newest first.
func (r *InviteRepo) ListPending(_ context.Context, now time.Time) ([]*auth.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*auth.Invite, 0, len(r.s.invites))
	for _, inv := range r.s.invites {
		if inv.StateAt(now) == auth.InviteStatePending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes an invite if present.
func (r *InviteRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.invites, id)
	return nil
}

// GetPendingByCodeHash returns the pending invite with the code hash.
func (r *InviteRepo) GetPendingByCodeHash(_ context.Context, codeHash string, now time.Time) (*auth.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invites {
		if inv.CodeHash == codeHash && inv.StateAt(now) == auth.InviteStatePending {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

// MarkUsed sets used_at on an unused invite.
func (r *InviteRepo) MarkUsed(_ context.Context, id string, usedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.markUsed(id, usedAt)
}

// RedeemInvite creates the user and consumes the invite under one lock.
func (r *InviteRepo) RedeemInvite(_ context.Context, invite *auth.Invite, user *auth.User, usedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invites[invite.ID]
	if !ok || inv.UsedAt != nil {
		return auth.ErrNotFound
	}
	if err := r.s.insertUser(user); err != nil {
		return err
	}
	return r.s.markUsed(invite.ID, usedAt)
}

// markUsed consumes an invite. Caller holds mu.
func (s *Store) markUsed(id string, usedAt time.Time) error {
	inv, ok := s.invites[id]
	if !ok || inv.UsedAt != nil {
		return auth.ErrNotFound
	}
	t := usedAt
	inv.UsedAt = &t
	return nil
}
