// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/holomush/signon/pkg/errutil"
)

// AuditEvent is the value of the "event" attribute on sign-in audit records.
const AuditEvent = "sign_in_attempt"

// audit records one structured event per attempt. Rejected credentials are
// routine and log at INFO; faults log at ERROR. Password material is never
// included.
func (s *Service) audit(ctx context.Context, email string, outcome Outcome, elapsed time.Duration) {
	attrs := []any{
		"event", AuditEvent,
		"outcome", outcome.Label(),
		"email", email,
		"elapsed_ms", elapsed.Milliseconds(),
	}

	switch o := outcome.(type) {
	case *Success:
		attrs = append(attrs,
			"user_id", o.Session.UserID.String(),
			"session_id", o.Session.ID.String(),
		)
		s.logger.InfoContext(ctx, "sign-in succeeded", attrs...)
	case *Failure:
		if isFault(o.Kind) {
			errutil.LogError(ctx, s.logger, "sign-in failed", o.cause, attrs...)
			return
		}
		s.logger.InfoContext(ctx, "sign-in rejected", attrs...)
	}
}
