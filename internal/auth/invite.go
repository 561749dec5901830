// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Invite configuration.
const (
	InviteTTL       = 7 * 24 * time.Hour
	inviteCodeBytes = 16
)

// Messages returned to invite redeemers.
const (
	MsgInvalidCode      = "Invalid code"
	MsgPasswordTooShort = "Password must be at least 12 characters"
	MsgPasswordMismatch = "Passwords do not match"
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Email must be a valid address"
	MsgUserRegistered   = "User already registered"
	MsgInvalidOrExpired = "Invalid or expired invite"
)

const (
	markUsedMaxAttempts  = 3
	markUsedInitialDelay = 50 * time.Millisecond
)

// InviteState describes where an invite is in its lifecycle.
type InviteState string

// Invite states. Revoked invites are deleted and have no stored state.
const (
	InviteStatePending  InviteState = "pending"
	InviteStateRedeemed InviteState = "redeemed"
	InviteStateExpired  InviteState = "expired"
)

// Invite is a single-use registration grant for one email address.
type Invite struct {
	ID        string
	Email     string
	CodeHash  string
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// StateAt returns the invite's state at t.
func (i *Invite) StateAt(t time.Time) InviteState {
	switch {
	case i.UsedAt != nil:
		return InviteStateRedeemed
	case !i.ExpiresAt.After(t):
		return InviteStateExpired
	default:
		return InviteStatePending
	}
}

// IssuedInvite is returned once at creation. Code is never stored.
type IssuedInvite struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// InviteRepository manages invite persistence.
type InviteRepository interface {
	// Create stores a new invite.
	Create(ctx context.Context, invite *Invite) error

	// ListPending returns unused invites expiring after now, newest first.
	ListPending(ctx context.Context, now time.Time) ([]*Invite, error)

	// Delete removes an invite. Removing a missing invite is not an error.
	Delete(ctx context.Context, id string) error

	// GetPendingByCodeHash returns the unused, unexpired invite with the hash.
	// Returns ErrNotFound otherwise.
	GetPendingByCodeHash(ctx context.Context, codeHash string, now time.Time) (*Invite, error)

	// MarkUsed sets used_at if it is still null. Returns ErrNotFound when
	// the invite is missing or already used.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) error
}

// InviteRedeemer is implemented by stores that can create the invited user
// and consume the invite atomically.
type InviteRedeemer interface {
	// RedeemInvite inserts user and marks invite used in one transaction.
	// Returns ErrEmailTaken or ErrNotFound (invite already used) on conflict.
	RedeemInvite(ctx context.Context, invite *Invite, user *User, usedAt time.Time) error
}

// RedeemRequest is the input to InviteService.Redeem.
type RedeemRequest struct {
	Code            string
	Password        string
	ConfirmPassword string
}

// InviteService runs the invite lifecycle.
type InviteService struct {
	invites InviteRepository
	users   UserRepository
	hasher  PasswordHasher
	logger  *slog.Logger
	now     func() time.Time
	backoff func() retry.Backoff
}

// InviteServiceOption configures an InviteService.
type InviteServiceOption func(*InviteService)

// WithInviteClock sets the clock used for expiry.
func WithInviteClock(now func() time.Time) InviteServiceOption {
	return func(s *InviteService) {
		s.now = now
	}
}

// WithInviteLogger sets the logger.
func WithInviteLogger(logger *slog.Logger) InviteServiceOption {
	return func(s *InviteService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMarkUsedBackoff overrides the retry policy for marking an invite used
// when the store cannot redeem atomically.
func WithMarkUsedBackoff(b func() retry.Backoff) InviteServiceOption {
	return func(s *InviteService) {
		s.backoff = b
	}
}

// NewInviteService creates an InviteService.
func NewInviteService(invites InviteRepository, users UserRepository, hasher PasswordHasher, opts ...InviteServiceOption) (*InviteService, error) {
	if invites == nil {
		return nil, oops.Code("INVITE_INVALID_CONFIG").Errorf("invite repository is required")
	}
	if users == nil {
		return nil, oops.Code("INVITE_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("INVITE_INVALID_CONFIG").Errorf("password hasher is required")
	}
	s := &InviteService{
		invites: invites,
		users:   users,
		hasher:  hasher,
		logger:  slog.Default(),
		now:     time.Now,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(markUsedMaxAttempts-1, retry.NewExponential(markUsedInitialDelay))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewInviteCode returns a fresh invite code: two independent random ids
// concatenated.
func NewInviteCode() (string, error) {
	var b strings.Builder
	for i := 0; i < 2; i++ {
		raw := make([]byte, inviteCodeBytes)
		if _, err := rand.Read(raw); err != nil {
			return "", oops.Code("INVITE_CODE_GENERATE_FAILED").Wrap(err)
		}
		b.WriteString(base64.RawURLEncoding.EncodeToString(raw))
	}
	return b.String(), nil
}

// Create issues an invite for email on behalf of creatorID.
func (s *InviteService) Create(ctx context.Context, email, creatorID string) (*IssuedInvite, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code(CodeValidation).Errorf(MsgEmailRequired)
	}
	if ValidateEmail(email) != nil {
		return nil, oops.Code(CodeValidation).Errorf(MsgEmailInvalid)
	}

	code, err := NewInviteCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	invite := &Invite{
		ID:        ulid.Make().String(),
		Email:     email,
		CodeHash:  HashSessionToken(code),
		CreatedBy: creatorID,
		CreatedAt: now,
		ExpiresAt: now.Add(InviteTTL),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, storageError("create invite", err)
	}

	s.logger.InfoContext(ctx, "invite created", "invite_id", invite.ID, "created_by", creatorID)
	return &IssuedInvite{ID: invite.ID, Email: email, Code: code, ExpiresAt: invite.ExpiresAt}, nil
}

// ListActive returns pending invites, newest first.
func (s *InviteService) ListActive(ctx context.Context) ([]*Invite, error) {
	invites, err := s.invites.ListPending(ctx, s.now())
	if err != nil {
		return nil, storageError("list invites", err)
	}
	return invites, nil
}

// Revoke deletes an invite. Revoking an unknown invite succeeds.
func (s *InviteService) Revoke(ctx context.Context, id string) error {
	if err := s.invites.Delete(ctx, id); err != nil {
		return storageError("revoke invite", err)
	}
	s.logger.InfoContext(ctx, "invite revoked", "invite_id", id)
	return nil
}

// Check reports whether code currently identifies a pending invite.
func (s *InviteService) Check(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	_, err := s.invites.GetPendingByCodeHash(ctx, HashSessionToken(code), s.now())
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError("check invite", err)
	}
	return true, nil
}

// Redeem consumes an invite and registers its email with the given password.
func (s *InviteService) Redeem(ctx context.Context, req RedeemRequest) (*User, error) {
	switch {
	case req.Code == "":
		return nil, oops.Code(CodeValidation).Errorf(MsgInvalidCode)
	case PasswordTooShort(req.Password):
		return nil, oops.Code(CodeValidation).Errorf(MsgPasswordTooShort)
	case req.Password != req.ConfirmPassword:
		return nil, oops.Code(CodeValidation).Errorf(MsgPasswordMismatch)
	}

	now := s.now()
	invite, err := s.invites.GetPendingByCodeHash(ctx, HashSessionToken(req.Code), now)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeInviteInvalid).Errorf(MsgInvalidOrExpired)
	}
	if err != nil {
		return nil, storageError("find invite", err)
	}

	_, err = s.users.GetByEmail(ctx, invite.Email)
	switch {
	case err == nil:
		return nil, oops.Code(CodeUserExists).Errorf(MsgUserRegistered)
	case !errors.Is(err, ErrNotFound):
		return nil, storageError("find user", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code(CodeStorage).Wrapf(err, "hash password")
	}
	user, err := NewUser(invite.Email, hash, RoleUser)
	if err != nil {
		s.logger.WarnContext(ctx, "invite email cannot be registered",
			"invite_id", invite.ID, "error", err)
		return nil, oops.Code(CodeInviteInvalid).With("invite_id", invite.ID).Errorf(MsgInvalidOrExpired)
	}
	user.CreatedAt = now

	if redeemer, ok := s.invites.(InviteRedeemer); ok {
		if err := s.redeemAtomically(ctx, redeemer, invite, user, now); err != nil {
			return nil, err
		}
	} else if err := s.redeemSequenced(ctx, invite, user, now); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "invite redeemed", "invite_id", invite.ID, "user_id", user.ID)
	return user, nil
}

func (s *InviteService) redeemAtomically(ctx context.Context, redeemer InviteRedeemer, invite *Invite, user *User, now time.Time) error {
	err := redeemer.RedeemInvite(ctx, invite, user, now)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEmailTaken):
		return oops.Code(CodeUserExists).Errorf(MsgUserRegistered)
	case errors.Is(err, ErrNotFound):
		return oops.Code(CodeInviteInvalid).Errorf(MsgInvalidOrExpired)
	default:
		return storageError("redeem invite", err)
	}
}

// redeemSequenced creates the user first, then consumes the invite. If
// consuming fails after retries the account stands; the invite cannot mint a
// second account because its email is now registered.
func (s *InviteService) redeemSequenced(ctx context.Context, invite *Invite, user *User, now time.Time) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return oops.Code(CodeUserExists).Errorf(MsgUserRegistered)
		}
		return storageError("create user", err)
	}

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := s.invites.MarkUsed(ctx, invite.ID, now)
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to mark invite used",
			"invite_id", invite.ID, "user_id", user.ID, "error", err)
	}
	return nil
}
