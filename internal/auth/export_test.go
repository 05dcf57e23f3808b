// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "time"

// SetClock replaces the issuer clock in tests.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// Cause exposes the underlying fault of a failure in tests.
func (f *Failure) Cause() error {
	return f.cause
}
