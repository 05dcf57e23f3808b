// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/signon/pkg/errutil"
)

type stubPinger struct {
	failures int
	calls    int
}

func (s *stubPinger) Ping(context.Context) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("the database system is starting up")
	}
	return nil
}

func TestWaitForPing(t *testing.T) {
	opts := ConnectOptions{MaxRetries: 3, Backoff: time.Millisecond}

	t.Run("succeeds first time", func(t *testing.T) {
		p := &stubPinger{}
		require.NoError(t, waitForPing(context.Background(), p, opts))
		assert.Equal(t, 1, p.calls)
	})

	t.Run("retries until the database answers", func(t *testing.T) {
		p := &stubPinger{failures: 2}
		require.NoError(t, waitForPing(context.Background(), p, opts))
		assert.Equal(t, 3, p.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		p := &stubPinger{failures: 100}
		err := waitForPing(context.Background(), p, opts)
		require.Error(t, err)
		assert.Equal(t, 4, p.calls)
		errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
		errutil.AssertErrorContext(t, err, "attempts", 4)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := &stubPinger{failures: 100}
		err := waitForPing(ctx, p, ConnectOptions{MaxRetries: 10, Backoff: time.Hour})
		require.Error(t, err)
		assert.LessOrEqual(t, p.calls, 1)
	})
}

func TestConnect_InvalidInput(t *testing.T) {
	_, err := Connect(context.Background(), "", ConnectOptions{})
	errutil.AssertErrorCode(t, err, "DB_URL_MISSING")

	_, err = Connect(context.Background(), "postgres://localhost:notaport/db", ConnectOptions{})
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}
