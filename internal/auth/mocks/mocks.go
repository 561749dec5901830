// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

// Package mocks provides testify mocks for the auth repository and hasher
// interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ironlog/ironlog/internal/auth"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations at test cleanup.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	ret := m.Called(ctx)
	return ret.Int(0), ret.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// MockSessionRepository is a mock auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations at test cleanup.
func NewMockSessionRepository(t testingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetWithUser(ctx context.Context, tokenHash string) (*auth.SessionRecord, error) {
	ret := m.Called(ctx, tokenHash)
	rec, _ := ret.Get(0).(*auth.SessionRecord)
	return rec, ret.Error(1)
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockInviteRepository is a mock auth.InviteRepository. It does not
// implement auth.InviteRedeemer, so services fall back to sequenced writes.
type MockInviteRepository struct {
	mock.Mock
}

// NewMockInviteRepository creates a mock that asserts its expectations at test cleanup.
func NewMockInviteRepository(t testingT) *MockInviteRepository {
	m := &MockInviteRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockInviteRepository) Create(ctx context.Context, invite *auth.Invite) error {
	return m.Called(ctx, invite).Error(0)
}

func (m *MockInviteRepository) ListPending(ctx context.Context, now time.Time) ([]*auth.Invite, error) {
	ret := m.Called(ctx, now)
	invites, _ := ret.Get(0).([]*auth.Invite)
	return invites, ret.Error(1)
}

func (m *MockInviteRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInviteRepository) GetPendingByCodeHash(ctx context.Context, codeHash string, now time.Time) (*auth.Invite, error) {
	ret := m.Called(ctx, codeHash, now)
	invite, _ := ret.Get(0).(*auth.Invite)
	return invite, ret.Error(1)
}

func (m *MockInviteRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	return m.Called(ctx, id, usedAt).Error(0)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations at test cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, encoded string) bool {
	return m.Called(password, encoded).Bool(0)
}

func (m *MockPasswordHasher) NeedsUpgrade(encoded string) bool {
	return m.Called(encoded).Bool(0)
}

var (
	_ auth.UserRepository    = (*MockUserRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.InviteRepository  = (*MockInviteRepository)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
)
