// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrSessionConflict is returned by a SessionStore when a session with the
// same token hash already exists.
var ErrSessionConflict = errors.New("session already exists")

// ErrInvalidSession is returned by Issuer.ValidateSession for an empty,
// unknown or expired token.
var ErrInvalidSession = errors.New("invalid session")
