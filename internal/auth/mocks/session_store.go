// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/signon/internal/auth"
)

// MockSessionStore is a mock auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore whose expectations are
// asserted when the test finishes.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionStore {
	m := &MockSessionStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Insert implements auth.SessionStore.
func (m *MockSessionStore) Insert(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

// GetByTokenHash implements auth.SessionStore.
func (m *MockSessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	args := m.Called(ctx, tokenHash)
	var session *auth.Session
	if v := args.Get(0); v != nil {
		session = v.(*auth.Session)
	}
	return session, args.Error(1)
}

// DeleteByTokenHash implements auth.SessionStore.
func (m *MockSessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

// DeleteByUser implements auth.SessionStore.
func (m *MockSessionStore) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	return m.Called(ctx, userID).Error(0)
}

// DeleteExpired implements auth.SessionStore.
func (m *MockSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ auth.SessionStore = (*MockSessionStore)(nil)
