// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes     = 32 // 32 bytes = 64 hex chars, 256 bits of entropy
	DefaultSessionTTL     = 30 * 24 * time.Hour
	AttributeUserAgent    = "user_agent"
	AttributeIPAddress    = "ip_address"
	minSessionTokenLength = 2 * 16 // 128 bits, hex-encoded
)

// Session is a server-side record granting access after a successful sign-in.
//
// Token is the plaintext bearer value delivered in the cookie. It is only set
// on sessions returned by Issuer.CreateSession and is never persisted; stores
// key sessions by TokenHash.
type Session struct {
	ID         ulid.ULID
	Token      string `json:"-"`
	TokenHash  string
	UserID     ulid.ULID
	Attributes map[string]string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// NewSession creates a validated Session. A nil attributes map is replaced
// with an empty one.
func NewSession(userID ulid.ULID, token string, attributes map[string]string, createdAt, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if len(token) < minSessionTokenLength {
		return nil, oops.Code("SESSION_INVALID_TOKEN").
			With("length", len(token)).
			Errorf("session token is too short")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry must be after creation time")
	}

	attrs := make(map[string]string, len(attributes))
	maps.Copy(attrs, attributes)

	return &Session{
		ID:         ulid.Make(),
		Token:      token,
		TokenHash:  HashSessionToken(token),
		UserID:     userID,
		Attributes: attrs,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Lifetime returns the total validity window of the session.
func (s *Session) Lifetime() time.Duration {
	return s.ExpiresAt.Sub(s.CreatedAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionStore persists sessions. Implementations must make Insert atomic and
// must never store the plaintext token.
type SessionStore interface {
	// Insert stores a new session. Returns an error wrapping ErrSessionConflict
	// if the token hash is already present.
	Insert(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session by its token hash.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByUser removes all sessions for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}

// ClientInfo describes the client that submitted a sign-in attempt.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

type clientInfoKey struct{}

// WithClientInfo returns a context carrying info. Sessions created under the
// context record it in their attributes.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom returns the ClientInfo stored in ctx, if any.
func ClientInfoFrom(ctx context.Context) (ClientInfo, bool) {
	info, ok := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info, ok
}
