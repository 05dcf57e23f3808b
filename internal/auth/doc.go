// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements email/password sign-in and session issuance.
//
// # Components
//
//   - Hasher derives and verifies salted password hashes (PBKDF2Hasher, Argon2idHasher).
//   - Issuer creates sessions in a SessionStore and describes their cookies.
//   - Service orchestrates a sign-in attempt and returns an Outcome.
//
// # Outcomes
//
// Service.SignIn never returns a raw error. Every attempt yields either a
// *Success carrying the session, its cookie descriptor and the redirect target,
// or a *Failure carrying a FailureKind, a message and an optional
// PresentationHint. Transports set the cookie and perform the redirect.
//
// Repository implementations live in the postgres and redis subpackages.
package auth
