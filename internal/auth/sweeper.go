// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/signon/pkg/errutil"
)

// SweepObserver receives the number of sessions removed by each sweep.
type SweepObserver interface {
	ObserveSweep(removed int64)
}

// RunSweeper calls SweepExpired every interval until ctx is done. Failed
// sweeps are logged and retried on the next tick.
func (i *Issuer) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger, observer SweepObserver) error {
	if interval <= 0 {
		return oops.Code("AUTH_INVALID_CONFIG").With("interval", interval.String()).Errorf("sweep interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := i.SweepExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				errutil.LogError(ctx, logger, "session sweep failed", err)
				continue
			}
			if observer != nil {
				observer.ObserveSweep(removed)
			}
			if removed > 0 {
				logger.InfoContext(ctx, "expired sessions removed", "count", removed)
			}
		}
	}
}
