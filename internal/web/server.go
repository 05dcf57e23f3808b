// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web is the HTTP transport for sign-in. It maps sign-in outcomes to
// redirects, cookies and JSON bodies.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/holomush/signon/internal/auth"
)

// DefaultServiceName names the otelecho tracer.
const DefaultServiceName = "signon"

// MaxBodySize caps request bodies. Larger ones get 413 before any hashing.
const MaxBodySize = "16K"

// RequestObserver receives one observation per handled request.
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, int) {}

// Server serves the sign-in routes.
type Server struct {
	echo        *echo.Echo
	service     *auth.Service
	issuer      *auth.Issuer
	logger      *slog.Logger
	observer    RequestObserver
	timeout     time.Duration
	serviceName string
	listener    net.Listener
	running     atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRequestObserver sets the per-request metrics sink.
func WithRequestObserver(o RequestObserver) Option {
	return func(s *Server) { s.observer = o }
}

// WithRequestTimeout bounds each request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithServiceName sets the name reported by tracing spans.
func WithServiceName(name string) Option {
	return func(s *Server) { s.serviceName = name }
}

// NewServer builds the echo instance and registers the routes.
func NewServer(service *auth.Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("sign-in service is required")
	}

	s := &Server{
		service:     service,
		issuer:      service.Issuer(),
		logger:      slog.Default(),
		observer:    noopObserver{},
		serviceName: DefaultServiceName,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(s.serviceName))
	e.Use(securityHeaders())
	e.Use(s.requestLogger())
	e.Use(middleware.BodyLimit(MaxBodySize))
	if s.timeout > 0 {
		e.Use(middleware.ContextTimeout(s.timeout))
	}

	e.POST(RouteSignIn, s.handleSignIn)
	e.POST(RouteSignOut, s.handleSignOut)
	e.GET(RouteSession, s.handleSession)

	s.echo = e
	return s, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves in the background. The returned channel
// receives a serve error, if any, and is closed when the server stops.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	s.listener = listener
	s.echo.Listener = listener

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := s.echo.Start(""); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return oops.Code("WEB_SHUTDOWN_FAILED").With("operation", "shutdown web server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the listen address, or "" if not started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
