// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/signon/internal/auth"
	"github.com/holomush/signon/pkg/errutil"
)

var sessionColumns = []string{"id", "user_id", "token_hash", "attributes", "created_at", "expires_at"}

func newMockStore(t *testing.T) (*SessionStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewSessionStore(mock), mock
}

func testSession() *auth.Session {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.Session{
		ID:         ulid.Make(),
		Token:      "plaintext-never-stored",
		TokenHash:  auth.HashSessionToken("plaintext-never-stored"),
		UserID:     ulid.Make(),
		Attributes: map[string]string{auth.AttributeUserAgent: "curl/8"},
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
}

func TestSessionStore_Insert(t *testing.T) {
	session := testSession()

	t.Run("inserts hash and attributes", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(
				session.ID.String(),
				session.UserID.String(),
				session.TokenHash,
				[]byte(`{"user_agent":"curl/8"}`),
				session.CreatedAt,
				session.ExpiresAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Insert(context.Background(), session))
	})

	t.Run("duplicate token hash", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "sessions_token_hash_unique"})

		err := store.Insert(context.Background(), session)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrSessionConflict)
		errutil.AssertErrorCode(t, err, "SESSION_CONFLICT")
	})

	t.Run("other failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		err := store.Insert(context.Background(), session)
		errutil.AssertErrorCode(t, err, "SESSION_INSERT_FAILED")
		assert.NotErrorIs(t, err, auth.ErrSessionConflict)
	})
}

func TestSessionStore_GetByTokenHash(t *testing.T) {
	session := testSession()

	t.Run("found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM sessions\s+WHERE token_hash`).
			WithArgs(session.TokenHash).
			WillReturnRows(pgxmock.NewRows(sessionColumns).AddRow(
				session.ID.String(), session.UserID.String(), session.TokenHash,
				[]byte(`{"user_agent":"curl/8"}`), session.CreatedAt, session.ExpiresAt))

		got, err := store.GetByTokenHash(context.Background(), session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.UserID, got.UserID)
		assert.Equal(t, session.TokenHash, got.TokenHash)
		assert.Empty(t, got.Token, "plaintext token is never read back")
		assert.Equal(t, session.Attributes, got.Attributes)
		assert.Equal(t, session.ExpiresAt, got.ExpiresAt)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		_, err := store.GetByTokenHash(context.Background(), "missing")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("scan failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("hash").WillReturnError(errors.New("conn closed"))

		_, err := store.GetByTokenHash(context.Background(), "hash")
		errutil.AssertErrorCode(t, err, "SESSION_SCAN_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "scan session")
	})

	t.Run("corrupt attributes", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("hash").
			WillReturnRows(pgxmock.NewRows(sessionColumns).AddRow(
				session.ID.String(), session.UserID.String(), "hash",
				[]byte(`not json`), session.CreatedAt, session.ExpiresAt))

		_, err := store.GetByTokenHash(context.Background(), "hash")
		errutil.AssertErrorCode(t, err, "SESSION_DECODE_FAILED")
	})
}

func TestSessionStore_DeleteByTokenHash(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE token_hash`).WithArgs("hash").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		assert.NoError(t, store.DeleteByTokenHash(context.Background(), "hash"))
	})

	t.Run("nothing deleted", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE token_hash`).WithArgs("hash").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		assert.ErrorIs(t, store.DeleteByTokenHash(context.Background(), "hash"), auth.ErrNotFound)
	})

	t.Run("failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM sessions`).WithArgs("hash").WillReturnError(errors.New("boom"))
		errutil.AssertErrorCode(t, store.DeleteByTokenHash(context.Background(), "hash"), "SESSION_DELETE_FAILED")
	})
}

func TestSessionStore_DeleteByUser(t *testing.T) {
	userID := ulid.Make()

	t.Run("zero rows is fine", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id`).WithArgs(userID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		assert.NoError(t, store.DeleteByUser(context.Background(), userID))
	})

	t.Run("failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id`).WithArgs(userID.String()).
			WillReturnError(errors.New("boom"))
		err := store.DeleteByUser(context.Background(), userID)
		errutil.AssertErrorCode(t, err, "SESSION_DELETE_BY_USER_FAILED")
		errutil.AssertErrorContext(t, err, "user_id", userID.String())
	})
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns count", func(t *testing.T) {
		store, mock := newMockStore(t)
		store.now = func() time.Time { return now }
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))

		n, err := store.DeleteExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		store.now = func() time.Time { return now }
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).WithArgs(now).
			WillReturnError(errors.New("boom"))

		_, err := store.DeleteExpired(context.Background())
		errutil.AssertErrorCode(t, err, "SESSION_DELETE_EXPIRED_FAILED")
	})
}
