// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/signon/internal/auth"
)

// SessionStore implements auth.SessionStore using PostgreSQL.
type SessionStore struct {
	pool poolIface
	now  func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool poolIface) *SessionStore {
	return &SessionStore{pool: pool, now: time.Now}
}

// Insert stores a new session in a single statement.
func (s *SessionStore) Insert(ctx context.Context, session *auth.Session) error {
	attrs, err := json.Marshal(session.Attributes)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").
			With("operation", "marshal session attributes").
			Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, attributes, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID.String(),
		session.UserID.String(),
		session.TokenHash,
		attrs,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("SESSION_CONFLICT").
				With("session_id", session.ID.String()).
				Wrap(auth.ErrSessionConflict)
		}
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, attributes, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get session by token hash").Wrap(err)
	}
	return session, nil
}

// DeleteByTokenHash removes a session by its token hash.
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all sessions for a user. Deleting zero rows is not an
// error.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session. pgx.ErrNoRows is returned
// unchanged for callers to handle.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr     string
		userIDStr string
		tokenHash string
		attrs     []byte
		createdAt time.Time
		expiresAt time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &tokenHash, &attrs, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}

	attributes := make(map[string]string)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &attributes); err != nil {
			return nil, oops.Code("SESSION_DECODE_FAILED").
				With("operation", "unmarshal session attributes").
				Wrap(err)
		}
	}

	return &auth.Session{
		ID:         id,
		TokenHash:  tokenHash,
		UserID:     userID,
		Attributes: attributes,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
