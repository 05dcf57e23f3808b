// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/holomush/signon/internal/auth"
)

// MockHasher is a mock auth.Hasher.
type MockHasher struct {
	mock.Mock
}

// NewMockHasher creates a MockHasher whose expectations are asserted when the
// test finishes.
func NewMockHasher(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockHasher {
	m := &MockHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// DeriveHash implements auth.Hasher.
func (m *MockHasher) DeriveHash(password, salt string) string {
	return m.Called(password, salt).String(0)
}

// Verify implements auth.Hasher.
func (m *MockHasher) Verify(password, salt, expectedHash string) bool {
	return m.Called(password, salt, expectedHash).Bool(0)
}

var _ auth.Hasher = (*MockHasher)(nil)
