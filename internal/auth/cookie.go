// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
)

// SameSite values accepted in cookie configuration.
const (
	SameSiteLax    = "lax"
	SameSiteStrict = "strict"
	SameSiteNone   = "none"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "auth_session"

// CookieAttributes are the flags a transport applies when setting a cookie.
type CookieAttributes struct {
	Path     string    `json:"path"`
	HTTPOnly bool      `json:"httpOnly"`
	Secure   bool      `json:"secure"`
	SameSite string    `json:"sameSite"`
	MaxAge   int       `json:"maxAge"`
	Expires  time.Time `json:"expires"`
}

// CookieDescriptor describes a cookie to set on a response.
type CookieDescriptor struct {
	Name       string           `json:"name"`
	Value      string           `json:"value"`
	Attributes CookieAttributes `json:"attributes"`
}

// HTTPCookie converts the descriptor into a net/http cookie.
func (d CookieDescriptor) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     d.Name,
		Value:    d.Value,
		Path:     d.Attributes.Path,
		Expires:  d.Attributes.Expires,
		MaxAge:   d.Attributes.MaxAge,
		Secure:   d.Attributes.Secure,
		HttpOnly: d.Attributes.HTTPOnly,
		SameSite: httpSameSite(d.Attributes.SameSite),
	}
}

// CookieConfig controls the cookies produced by an Issuer.
type CookieConfig struct {
	Name     string
	Path     string
	Secure   bool
	SameSite string
}

// DefaultCookieConfig returns production cookie settings.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     DefaultCookieName,
		Path:     "/",
		Secure:   true,
		SameSite: SameSiteLax,
	}
}

// Validate checks the cookie configuration.
func (c CookieConfig) Validate() error {
	if c.Name == "" {
		return oops.Code("AUTH_INVALID_CONFIG").Errorf("cookie name cannot be empty")
	}
	switch strings.ToLower(c.SameSite) {
	case SameSiteLax, SameSiteStrict:
	case SameSiteNone:
		if !c.Secure {
			return oops.Code("AUTH_INVALID_CONFIG").Errorf("same-site none requires a secure cookie")
		}
	default:
		return oops.Code("AUTH_INVALID_CONFIG").
			With("same_site", c.SameSite).
			Errorf("unsupported same-site value: %s", c.SameSite)
	}
	return nil
}

func httpSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
