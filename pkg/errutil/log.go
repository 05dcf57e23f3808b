// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil bridges oops errors with structured logging and tests.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at ERROR with structured context if it's an oops error.
// For oops errors the code and context are emitted as attributes; for
// standard errors only the error string is. attrs are appended as given.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields, attrs...)

	switch oopsErr, ok := oops.AsOops(err); {
	case err == nil:
	case ok:
		fields = append(fields, "error", oopsErr.Error())
		if code := Code(err); code != "" {
			fields = append(fields, "code", code)
		}
		if octx := oopsErr.Context(); len(octx) > 0 {
			fields = append(fields, "context", octx)
		}
	default:
		fields = append(fields, "error", err.Error())
	}

	logger.ErrorContext(ctx, msg, fields...)
}

// Code returns the oops code attached to err, or "" if there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}
