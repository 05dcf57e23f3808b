// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	TTL    time.Duration
	Cookie CookieConfig
	// Attributes are copied into every new session.
	Attributes map[string]string
}

// Issuer creates sessions and the cookies that carry them.
type Issuer struct {
	store      SessionStore
	ttl        time.Duration
	cookie     CookieConfig
	attributes map[string]string
	now        func() time.Time
}

// NewIssuer creates a new Issuer.
func NewIssuer(store SessionStore, cfg IssuerConfig) (*Issuer, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("AUTH_INVALID_CONFIG").With("ttl", cfg.TTL.String()).Errorf("session ttl must be positive")
	}
	if cfg.Cookie == (CookieConfig{}) {
		cfg.Cookie = DefaultCookieConfig()
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if err := cfg.Cookie.Validate(); err != nil {
		return nil, err
	}

	return &Issuer{
		store:      store,
		ttl:        cfg.TTL,
		cookie:     cfg.Cookie,
		attributes: maps.Clone(cfg.Attributes),
		now:        time.Now,
	}, nil
}

// CookieName returns the name of the session cookie.
func (i *Issuer) CookieName() string {
	return i.cookie.Name
}

// CreateSession generates a random token, persists a session for userID and
// returns it with the plaintext token set.
func (i *Issuer) CreateSession(ctx context.Context, userID ulid.ULID) (*Session, error) {
	ctx, span := tracer.Start(ctx, "auth.Issuer.CreateSession")
	defer span.End()

	token, _, err := GenerateSessionToken()
	if err != nil {
		span.SetStatus(codes.Error, "token generation failed")
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	attrs := maps.Clone(i.attributes)
	if attrs == nil {
		attrs = make(map[string]string)
	}
	if info, ok := ClientInfoFrom(ctx); ok {
		if info.UserAgent != "" {
			attrs[AttributeUserAgent] = info.UserAgent
		}
		if info.IPAddress != "" {
			attrs[AttributeIPAddress] = info.IPAddress
		}
	}

	now := i.now().UTC().Truncate(time.Microsecond)
	session, err := NewSession(userID, token, attrs, now, now.Add(i.ttl))
	if err != nil {
		span.SetStatus(codes.Error, "invalid session")
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "build session").
			Wrap(err)
	}

	if err := i.store.Insert(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist session failed")
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	span.SetAttributes(attribute.String("session.id", session.ID.String()))
	return session, nil
}

// CreateSessionCookie describes the cookie carrying session. It is a pure
// function of the session and the issuer's cookie configuration.
func (i *Issuer) CreateSessionCookie(session *Session) CookieDescriptor {
	return CookieDescriptor{
		Name:  i.cookie.Name,
		Value: session.Token,
		Attributes: CookieAttributes{
			Path:     i.cookie.Path,
			HTTPOnly: true,
			Secure:   i.cookie.Secure,
			SameSite: strings.ToLower(i.cookie.SameSite),
			MaxAge:   int(session.Lifetime().Seconds()),
			Expires:  session.ExpiresAt,
		},
	}
}

// BlankSessionCookie describes a cookie that clears the session cookie.
func (i *Issuer) BlankSessionCookie() CookieDescriptor {
	return CookieDescriptor{
		Name:  i.cookie.Name,
		Value: "",
		Attributes: CookieAttributes{
			Path:     i.cookie.Path,
			HTTPOnly: true,
			Secure:   i.cookie.Secure,
			SameSite: strings.ToLower(i.cookie.SameSite),
			MaxAge:   -1,
			Expires:  time.Unix(0, 0).UTC(),
		},
	}
}

// ValidateSession returns the live session for token. Empty, unknown and
// expired tokens yield an error wrapping ErrInvalidSession.
func (i *Issuer) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Wrapf(ErrInvalidSession, "session token cannot be empty")
	}

	session, err := i.store.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(errors.Join(ErrInvalidSession, err))
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(i.now()) {
		return nil, oops.Code("SESSION_EXPIRED").
			With("session_id", session.ID.String()).
			Wrapf(ErrInvalidSession, "session has expired")
	}

	return session, nil
}

// InvalidateSession deletes the session for token. Unknown tokens are not an
// error: signing out twice is harmless.
func (i *Issuer) InvalidateSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := i.store.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// InvalidateUserSessions deletes every session of userID.
func (i *Issuer) InvalidateUserSessions(ctx context.Context, userID ulid.ULID) error {
	if err := i.store.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// SweepExpired deletes expired sessions and returns how many were removed.
func (i *Issuer) SweepExpired(ctx context.Context) (int64, error) {
	n, err := i.store.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return n, nil
}
