// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Supported hash algorithms.
const (
	AlgorithmPBKDF2SHA512 = "pbkdf2-sha512"
	AlgorithmArgon2id     = "argon2id"
)

// PBKDF2 parameters. The key length and digest match the stored hash format
// (128 lowercase hex characters).
const (
	DefaultPBKDF2Iterations = 210_000
	MinPBKDF2Iterations     = 100_000
	pbkdf2KeyLen            = 64
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2KeyLen  = 32        // output length in bytes
)

// SaltBytes is the number of random bytes in a generated salt.
const SaltBytes = 16

// Hasher derives and verifies salted password hashes.
//
// Implementations are pure: the same password and salt always yield the same
// hash, and neither method has side effects.
type Hasher interface {
	// DeriveHash returns the hex-encoded hash of password under salt.
	DeriveHash(password, salt string) string

	// Verify reports whether password under salt hashes to expectedHash.
	// The comparison is constant-time.
	Verify(password, salt, expectedHash string) bool
}

// PBKDF2Hasher implements Hasher with PBKDF2-HMAC-SHA512.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a PBKDF2Hasher. Iteration counts below
// MinPBKDF2Iterations are rejected.
func NewPBKDF2Hasher(iterations int) (*PBKDF2Hasher, error) {
	if iterations < MinPBKDF2Iterations {
		return nil, oops.Code("AUTH_WEAK_ITERATIONS").
			With("iterations", iterations).
			With("min", MinPBKDF2Iterations).
			Errorf("pbkdf2 iterations must be at least %d", MinPBKDF2Iterations)
	}
	return &PBKDF2Hasher{iterations: iterations}, nil
}

// Iterations returns the configured iteration count.
func (h *PBKDF2Hasher) Iterations() int {
	return h.iterations
}

// DeriveHash returns hex(PBKDF2-HMAC-SHA512(password, salt, iterations, 64)).
func (h *PBKDF2Hasher) DeriveHash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, pbkdf2KeyLen, sha512.New)
	return hex.EncodeToString(key)
}

// Verify checks password against expectedHash in constant time.
func (h *PBKDF2Hasher) Verify(password, salt, expectedHash string) bool {
	return constantTimeEqual(h.DeriveHash(password, salt), expectedHash)
}

// Argon2idHasher implements Hasher with argon2id.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// DeriveHash returns hex(argon2id(password, salt)).
func (h *Argon2idHasher) DeriveHash(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hex.EncodeToString(key)
}

// Verify checks password against expectedHash in constant time.
func (h *Argon2idHasher) Verify(password, salt, expectedHash string) bool {
	return constantTimeEqual(h.DeriveHash(password, salt), expectedHash)
}

// NewHasher returns the Hasher for algorithm. iterations only applies to
// AlgorithmPBKDF2SHA512.
func NewHasher(algorithm string, iterations int) (Hasher, error) {
	switch algorithm {
	case AlgorithmPBKDF2SHA512, "":
		h, err := NewPBKDF2Hasher(iterations)
		if err != nil {
			return nil, err
		}
		return h, nil
	case AlgorithmArgon2id:
		return NewArgon2idHasher(), nil
	default:
		return nil, oops.Code("AUTH_UNKNOWN_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// GenerateSalt returns SaltBytes random bytes, hex-encoded.
func GenerateSalt() (string, error) {
	b := make([]byte, SaltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// constantTimeEqual compares two hex strings without leaking the position of
// the first difference.
func constantTimeEqual(computed, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) == 1
}
