// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/ironlog/ironlog/pkg/errutil"
)

// LoginRequest carries the untrusted inputs of a login attempt.
type LoginRequest struct {
	Email      string
	Password   string
	ClientAddr string
}

// LoginResult is returned by a successful login or invite redemption.
// Token is the bearer secret for the session cookie.
type LoginResult struct {
	User      Identity
	Token     string
	ExpiresAt time.Time
}

// Service provides login, logout and session checks.
type Service struct {
	users     UserRepository
	sessions  *Sessions
	hasher    PasswordHasher
	limiter   *RateLimiter
	invites   *InviteService
	bootstrap BootstrapConfig
	logger    *slog.Logger
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBootstrap enables admin bootstrap on the first login of cfg.AdminEmail.
func WithBootstrap(cfg BootstrapConfig) ServiceOption {
	return func(s *Service) {
		s.bootstrap = cfg
	}
}

// WithInvites enables invite redemption through the service.
func WithInvites(invites *InviteService) ServiceOption {
	return func(s *Service) {
		s.invites = invites
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewAuthService creates a Service. The limiter is owned by the caller so
// it can be shared or reset.
func NewAuthService(users UserRepository, sessions *Sessions, hasher PasswordHasher, limiter *RateLimiter, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("sessions service is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if limiter == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("rate limiter is required")
	}

	iterations := DefaultPBKDF2Iterations
	if it, ok := hasher.(interface{ Iterations() int }); ok {
		iterations = it.Iterations()
	}

	s := &Service{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		limiter:   limiter,
		logger:    slog.Default(),
		dummyHash: DummyPasswordHash(iterations),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	return s, nil
}

// Sessions returns the session service used by s.
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
}

// Login authenticates an email and password and starts a session.
//
// Checks run in a fixed order: rate limit, input shape, lookup (with admin
// bootstrap), password. Unknown accounts still pay for one verification.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := NormalizeEmail(req.Email)

	if s.limiter.IsLimited(LoginRateLimitKey(req.ClientAddr, email)) {
		return nil, oops.Code(CodeRateLimited).
			With("client_addr", req.ClientAddr).
			Errorf("too many attempts")
	}

	if email == "" || PasswordTooShort(req.Password) {
		return nil, invalidCredentials()
	}

	user, err := s.lookupForLogin(ctx, email)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "login lookup failed", err)
		return nil, err
	}

	if user == nil || user.PasswordHash == "" {
		s.hasher.Verify(req.Password, s.dummyHash)
		return nil, invalidCredentials()
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, invalidCredentials()
	}

	s.upgradeHash(ctx, user, req.Password)

	token, expiresAt, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session create failed", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)
	return &LoginResult{User: user.Identity(), Token: token, ExpiresAt: expiresAt}, nil
}

// lookupForLogin returns nil, nil when no account exists for email.
func (s *Service) lookupForLogin(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, storageError("get user by email", err)
	}
	if !s.bootstrap.Enabled() || email != NormalizeEmail(s.bootstrap.AdminEmail) {
		return nil, nil
	}

	if _, err := EnsureAdminBootstrap(ctx, s.users, s.hasher, s.bootstrap); err != nil {
		return nil, err
	}
	user, err = s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get user by email", err)
	}
	return user, nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID)
}

// Logout ends the session for token. It never fails from the caller's view;
// storage errors are logged.
func (s *Service) Logout(ctx context.Context, token string) {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "logout failed", err)
	}
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*Authenticated, error) {
	a, err := s.sessions.Verify(ctx, token)
	if err == nil {
		return a, nil
	}
	switch errutil.Code(err) {
	case CodeSessionInvalid, CodeSessionExpired:
		return nil, oops.Code(CodeUnauthorized).With("reason", errutil.Code(err)).Errorf("unauthorized")
	default:
		errutil.LogErrorContext(ctx, s.logger, "session check failed", err)
		return nil, err
	}
}

// Authorize fails with a forbidden error unless a holds the required role.
func Authorize(a *Authenticated, required Role) error {
	if a == nil {
		return oops.Code(CodeUnauthorized).Errorf("unauthorized")
	}
	if !a.Role.Satisfies(required) {
		return oops.Code(CodeForbidden).With("role", a.Role.String()).Errorf("forbidden")
	}
	return nil
}

// RedeemInvite registers the invited user and signs them in.
func (s *Service) RedeemInvite(ctx context.Context, req RedeemRequest) (*LoginResult, error) {
	if s.invites == nil {
		return nil, oops.Code(CodeConfiguration).Errorf("invites are not enabled")
	}
	user, err := s.invites.Redeem(ctx, req)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "session create after redeem failed", err)
		return nil, err
	}
	return &LoginResult{User: user.Identity(), Token: token, ExpiresAt: expiresAt}, nil
}
