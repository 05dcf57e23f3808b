// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/holomush/signon/internal/auth"
	"github.com/holomush/signon/pkg/errutil"
)

// Routes.
const (
	RouteSignIn  = "/sign-in"
	RouteSignOut = "/sign-out"
	RouteSession = "/session"
)

// signOutTarget is where a signed-out browser is sent.
const signOutTarget = "/"

// signInResponse is the JSON body of a sign-in or sign-out response.
type signInResponse struct {
	Success  bool                   `json:"success"`
	Redirect string                 `json:"redirect,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Toast    *auth.PresentationHint `json:"toast,omitempty"`
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleSignIn accepts a form or JSON credential. Success redirects, or answers
// JSON when the client accepts it. Failures are always JSON with the status
// from StatusFor, so a browser form must read the error and toast fields.
func (s *Server) handleSignIn(c echo.Context) error {
	var cred auth.Credential
	if err := c.Bind(&cred); err != nil {
		// An unreadable body is treated as an empty submission.
		cred = auth.Credential{}
	}

	req := c.Request()
	ctx := auth.WithClientInfo(req.Context(), auth.ClientInfo{
		UserAgent: req.UserAgent(),
		IPAddress: c.RealIP(),
	})

	switch o := s.service.SignIn(ctx, cred).(type) {
	case *auth.Success:
		c.SetCookie(o.Cookie.HTTPCookie())
		if wantsJSON(req) {
			return c.JSON(http.StatusOK, signInResponse{Success: true, Redirect: o.RedirectTarget})
		}
		return c.Redirect(http.StatusSeeOther, o.RedirectTarget)
	case *auth.Failure:
		return c.JSON(StatusFor(o.Kind), signInResponse{
			Success: false,
			Error:   o.Message,
			Toast:   o.Hint,
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected sign-in outcome")
	}
}

func (s *Server) handleSignOut(c echo.Context) error {
	ctx := c.Request().Context()

	if cookie, err := c.Cookie(s.issuer.CookieName()); err == nil {
		if err := s.issuer.InvalidateSession(ctx, cookie.Value); err != nil {
			errutil.LogError(ctx, s.logger, "sign-out failed", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not sign out"})
		}
	}

	c.SetCookie(s.issuer.BlankSessionCookie().HTTPCookie())
	if wantsJSON(c.Request()) {
		return c.JSON(http.StatusOK, signInResponse{Success: true, Redirect: signOutTarget})
	}
	return c.Redirect(http.StatusSeeOther, signOutTarget)
}

func (s *Server) handleSession(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(s.issuer.CookieName())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	}

	session, err := s.issuer.ValidateSession(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSession) {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		}
		errutil.LogError(ctx, s.logger, "session lookup failed", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, sessionResponse{
		UserID:    session.UserID.String(),
		SessionID: session.ID.String(),
		ExpiresAt: session.ExpiresAt,
	})
}

// StatusFor returns the HTTP status for a failed sign-in.
func StatusFor(kind auth.FailureKind) int {
	switch kind {
	case auth.KindInvalidInput:
		return http.StatusBadRequest
	case auth.KindUserNotFound, auth.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// wantsJSON reports whether the client asked for a JSON response rather than
// a redirect.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
