// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/holomush/signon/internal/auth")

// Sign-in defaults.
const (
	DefaultRedirectTarget = "/dashboard"
	DefaultTimeout        = 10 * time.Second
)

// dummySalt and dummyHash are verified against when no user matches the
// email, so a missing account costs the same hashing work as a wrong
// password. The hash can never match: it is not a derived value.
//
//nolint:gosec // G101: not a credential.
const dummySalt = "9f3c1a7e5b2d4c6e8a0b1c2d3e4f5a6b"

var dummyHash = strings.Repeat("0", 2*pbkdf2KeyLen)

// Recorder receives one observation per sign-in attempt.
type Recorder interface {
	ObserveSignIn(outcome string, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveSignIn(string, time.Duration) {}

// Service orchestrates sign-in attempts.
type Service struct {
	users          UserRepository
	issuer         *Issuer
	hasher         Hasher
	logger         *slog.Logger
	recorder       Recorder
	redirectTarget string
	timeout        time.Duration
	uniform        bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the audit logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithRedirectTarget sets where successful sign-ins are sent.
func WithRedirectTarget(target string) Option {
	return func(s *Service) { s.redirectTarget = target }
}

// WithTimeout bounds each attempt. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithUniformFailures controls whether an unknown email is presented exactly
// like a wrong password.
func WithUniformFailures(uniform bool) Option {
	return func(s *Service) { s.uniform = uniform }
}

// NewService creates a new Service.
func NewService(users UserRepository, issuer *Issuer, hasher Hasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user repository is required")
	}
	if issuer == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session issuer is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}

	s := &Service{
		users:          users,
		issuer:         issuer,
		hasher:         hasher,
		logger:         slog.Default(),
		recorder:       noopRecorder{},
		redirectTarget: DefaultRedirectTarget,
		timeout:        DefaultTimeout,
		uniform:        true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	if s.redirectTarget == "" {
		s.redirectTarget = DefaultRedirectTarget
	}
	return s, nil
}

// Issuer returns the session issuer used by the service.
func (s *Service) Issuer() *Issuer {
	return s.issuer
}

// SignIn verifies cred and, on success, issues a new session.
//
// Steps short-circuit on the first failure: input validation, user lookup,
// password verification, session issuance. Faults of any kind, including
// panics and an elapsed deadline, become a KindUnexpected failure.
func (s *Service) SignIn(ctx context.Context, cred Credential) (outcome Outcome) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.Service.SignIn")

	defer func() {
		if r := recover(); r != nil {
			outcome = unexpectedFailure(oops.Code("AUTH_PANIC").
				With("operation", "sign in").
				Errorf("panic during sign-in: %v", r))
		}
		elapsed := time.Since(start)
		s.audit(ctx, cred.Email, outcome, elapsed)
		s.recorder.ObserveSignIn(outcome.Label(), elapsed)

		span.SetAttributes(attribute.String("signin.outcome", outcome.Label()))
		if f, ok := outcome.(*Failure); ok && f.cause != nil && isFault(f.Kind) {
			span.RecordError(f.cause)
			span.SetStatus(codes.Error, f.Message)
		}
		span.End()
	}()

	if err := cred.Validate(); err != nil {
		return invalidInputFailure(err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	user, err := s.users.FindByEmail(ctx, cred.Email)
	if ctxErr := contextFault(ctx, err); ctxErr != nil {
		return timeoutFailure(ctxErr, "find user by email", err)
	}

	found := true
	salt, hash := dummySalt, dummyHash
	switch {
	case errors.Is(err, ErrNotFound):
		found = false
	case err != nil:
		return unexpectedFailure(oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "find user by email").
			Wrap(err))
	default:
		salt, hash = user.Salt, user.HashedPassword
	}

	matched := s.hasher.Verify(cred.Password, salt, hash)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return timeoutFailure(ctxErr, "verify password", nil)
	}
	if !found {
		return userNotFoundFailure(s.uniform)
	}
	if !matched {
		return invalidCredentialsFailure()
	}

	session, err := s.issuer.CreateSession(ctx, user.ID)
	if err != nil {
		if ctxErr := contextFault(ctx, err); ctxErr != nil {
			return timeoutFailure(ctxErr, "create session", err)
		}
		return sessionCreationFailure(err)
	}

	return &Success{
		Session:        session,
		Cookie:         s.issuer.CreateSessionCookie(session),
		RedirectTarget: s.redirectTarget,
	}
}

// contextFault returns the context error that ended the attempt, or nil when
// neither ctx nor err shows an elapsed deadline or a cancellation.
func contextFault(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return context.Canceled
	}
	return nil
}

// timeoutFailure reports an attempt that ran out of time. The store error, if
// any, is kept as context.
func timeoutFailure(ctxErr error, operation string, cause error) *Failure {
	b := oops.Code("AUTH_TIMEOUT").With("operation", operation)
	if cause != nil {
		b = b.With("store_error", cause.Error())
	}
	return unexpectedFailure(b.Wrap(ctxErr))
}

func isFault(kind FailureKind) bool {
	return kind == KindUnexpected || kind == KindSessionCreationFailed
}
