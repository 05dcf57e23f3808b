// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis implements auth.SessionStore on Redis.
//
// Each session is a JSON value under <prefix>:session:<token_hash> whose TTL is
// the session's remaining lifetime. A set under <prefix>:user:<user_id>:sessions
// indexes a user's token hashes for DeleteByUser.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/signon/internal/auth"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "signon"

type record struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	TokenHash  string            `json:"token_hash"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// SessionStore implements auth.SessionStore using Redis.
type SessionStore struct {
	client goredis.Cmdable
	prefix string
	now    func() time.Time
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *SessionStore) { s.prefix = prefix }
}

// NewSessionStore creates a new SessionStore on client.
func NewSessionStore(client goredis.Cmdable, opts ...Option) *SessionStore {
	s := &SessionStore{client: client, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient parses a redis:// URL and returns a client for it.
func NewClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_URL_INVALID").With("operation", "parse redis url").Wrap(err)
	}
	return goredis.NewClient(opts), nil
}

func (s *SessionStore) sessionKey(tokenHash string) string {
	return s.prefix + ":session:" + tokenHash
}

func (s *SessionStore) userKey(userID string) string {
	return s.prefix + ":user:" + userID + ":sessions"
}

// Insert stores a new session with SET NX, so an existing token hash is never
// overwritten.
func (s *SessionStore) Insert(ctx context.Context, session *auth.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return oops.Code("SESSION_INVALID_EXPIRY").
			With("session_id", session.ID.String()).
			Errorf("session is already expired")
	}

	data, err := json.Marshal(record{
		ID:         session.ID.String(),
		UserID:     session.UserID.String(),
		TokenHash:  session.TokenHash,
		Attributes: session.Attributes,
		CreatedAt:  session.CreatedAt,
		ExpiresAt:  session.ExpiresAt,
	})
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").With("operation", "marshal session").Wrap(err)
	}

	key := s.sessionKey(session.TokenHash)
	ok, err := s.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "set session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	if !ok {
		return oops.Code("SESSION_CONFLICT").
			With("session_id", session.ID.String()).
			Wrap(auth.ErrSessionConflict)
	}

	if err := s.index(ctx, session.UserID.String(), session.TokenHash, ttl); err != nil {
		// The session is unreachable by DeleteByUser without its index entry.
		_ = s.client.Del(ctx, key).Err() //nolint:errcheck // index error takes precedence
		return err
	}
	return nil
}

// index adds tokenHash to the user's set and extends the set's TTL to cover
// the new session.
func (s *SessionStore) index(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	userKey := s.userKey(userID)
	current, err := s.client.TTL(ctx, userKey).Result()
	if err != nil {
		return oops.Code("SESSION_INDEX_FAILED").With("operation", "read index ttl").Wrap(err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SAdd(ctx, userKey, tokenHash)
		if current < ttl {
			pipe.Expire(ctx, userKey, ttl)
		}
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_INDEX_FAILED").
			With("operation", "index session").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return decode(data)
}

// DeleteByTokenHash removes a session by its token hash.
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	data, err := s.client.GetDel(ctx, s.sessionKey(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.UserID == "" {
		// Nothing to unindex; the stale member is dropped by DeleteByUser.
		return nil
	}
	if err := s.client.SRem(ctx, s.userKey(rec.UserID), tokenHash).Err(); err != nil {
		return oops.Code("SESSION_INDEX_FAILED").
			With("operation", "unindex session").
			With("user_id", rec.UserID).
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	userKey := s.userKey(userID.String())
	hashes, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "list user sessions").
			With("user_id", userID.String()).
			Wrap(err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.sessionKey(h))
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete user sessions").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired always reports zero: Redis evicts expired session keys on its
// own, and index sets expire with their longest-lived session.
func (s *SessionStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

func decode(data []byte) (*auth.Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("operation", "unmarshal session").Wrap(err)
	}

	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", rec.ID).Wrap(err)
	}
	userID, err := ulid.Parse(rec.UserID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", rec.UserID).Wrap(err)
	}
	if rec.Attributes == nil {
		rec.Attributes = make(map[string]string)
	}

	return &auth.Session{
		ID:         id,
		TokenHash:  rec.TokenHash,
		UserID:     userID,
		Attributes: rec.Attributes,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
