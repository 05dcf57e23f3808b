// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/signon/internal/auth"
	"github.com/holomush/signon/pkg/errutil"
)

var lowerHex128 = regexp.MustCompile(`^[0-9a-f]{128}$`)

func newTestHasher(t *testing.T) *auth.PBKDF2Hasher {
	t.Helper()
	h, err := auth.NewPBKDF2Hasher(auth.MinPBKDF2Iterations)
	require.NoError(t, err)
	return h
}

func TestPBKDF2Hasher_DeriveHash(t *testing.T) {
	hasher := newTestHasher(t)

	t.Run("matches known vector", func(t *testing.T) {
		got := hasher.DeriveHash("correct", "0123456789abcdef")
		assert.Equal(t,
			"82bf88c3751782b11173d1df4d9497c7f596b14c3c11a884f42b0b4533df3441"+
				"f1aeb3fb13d83eef56f9b99e6b2907d0b481012d0c1730d49b26a1a7820e7d6e",
			got)
	})

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, hasher.DeriveHash("pw", "salt"), hasher.DeriveHash("pw", "salt"))
	})

	t.Run("is 128 lowercase hex characters", func(t *testing.T) {
		assert.Regexp(t, lowerHex128, hasher.DeriveHash("pw", "salt"))
		assert.Regexp(t, lowerHex128, hasher.DeriveHash("", ""))
	})

	t.Run("different passwords produce different hashes", func(t *testing.T) {
		assert.NotEqual(t, hasher.DeriveHash("pw1", "salt"), hasher.DeriveHash("pw2", "salt"))
	})

	t.Run("different salts produce different hashes", func(t *testing.T) {
		assert.NotEqual(t, hasher.DeriveHash("pw", "salt1"), hasher.DeriveHash("pw", "salt2"))
	})
}

func TestPBKDF2Hasher_DefaultIterations(t *testing.T) {
	hasher, err := auth.NewPBKDF2Hasher(auth.DefaultPBKDF2Iterations)
	require.NoError(t, err)
	assert.Equal(t, 210_000, hasher.Iterations())
	assert.Equal(t,
		"afd45a832dc9e7f4d2c43bf634617930f239154a76eea9309db685a8514d553c"+
			"6c2f0a2ac004af746e32aa8df0d3060280e398e926d07d3bf5e9cdc60fc4eb23",
		hasher.DeriveHash("password", "salt"))
}

func TestPBKDF2Hasher_Verify(t *testing.T) {
	hasher := newTestHasher(t)
	hash := hasher.DeriveHash("correct", "somesalt")

	tests := []struct {
		name     string
		password string
		salt     string
		expected string
		want     bool
	}{
		{"correct password", "correct", "somesalt", hash, true},
		{"wrong password", "wrong", "somesalt", hash, false},
		{"wrong salt", "correct", "othersalt", hash, false},
		{"empty expected hash", "correct", "somesalt", "", false},
		{"truncated expected hash", "correct", "somesalt", hash[:64], false},
		{"uppercase expected hash", "correct", "somesalt", upper(hash), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.Verify(tt.password, tt.salt, tt.expected))
		})
	}
}

func TestNewPBKDF2Hasher_RejectsWeakIterations(t *testing.T) {
	hasher, err := auth.NewPBKDF2Hasher(auth.MinPBKDF2Iterations - 1)
	require.Error(t, err)
	assert.Nil(t, hasher)
	errutil.AssertErrorCode(t, err, "AUTH_WEAK_ITERATIONS")
}

func TestArgon2idHasher(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	hash := hasher.DeriveHash("correct", "somesalt")
	assert.Regexp(t, `^[0-9a-f]{64}$`, hash)
	assert.Equal(t, hash, hasher.DeriveHash("correct", "somesalt"))
	assert.True(t, hasher.Verify("correct", "somesalt", hash))
	assert.False(t, hasher.Verify("wrong", "somesalt", hash))
}

func TestNewHasher(t *testing.T) {
	t.Run("pbkdf2", func(t *testing.T) {
		h, err := auth.NewHasher(auth.AlgorithmPBKDF2SHA512, auth.MinPBKDF2Iterations)
		require.NoError(t, err)
		assert.IsType(t, &auth.PBKDF2Hasher{}, h)
	})

	t.Run("empty algorithm defaults to pbkdf2", func(t *testing.T) {
		h, err := auth.NewHasher("", auth.DefaultPBKDF2Iterations)
		require.NoError(t, err)
		assert.IsType(t, &auth.PBKDF2Hasher{}, h)
	})

	t.Run("argon2id", func(t *testing.T) {
		h, err := auth.NewHasher(auth.AlgorithmArgon2id, 0)
		require.NoError(t, err)
		assert.IsType(t, &auth.Argon2idHasher{}, h)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		h, err := auth.NewHasher("md5", 0)
		require.Error(t, err)
		assert.Nil(t, h)
		errutil.AssertErrorCode(t, err, "AUTH_UNKNOWN_ALGORITHM")
	})
}

func TestGenerateSalt(t *testing.T) {
	s1, err := auth.GenerateSalt()
	require.NoError(t, err)
	s2, err := auth.GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, s1, 2*auth.SaltBytes)
	assert.NotEqual(t, s1, s2)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
