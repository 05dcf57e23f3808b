// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is a stored account as seen by the sign-in flow. HashedPassword is
// always the Hasher output for the true password under Salt.
type User struct {
	ID             ulid.ULID
	Email          string
	HashedPassword string
	Salt           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserRepository provides read access to users.
type UserRepository interface {
	// FindByEmail retrieves a user by exact email match.
	// Returns ErrNotFound if no user has the given email.
	FindByEmail(ctx context.Context, email string) (*User, error)
}
