// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/signon/internal/auth"
	authpg "github.com/holomush/signon/internal/auth/postgres"
	"github.com/holomush/signon/internal/store"
	"github.com/holomush/signon/internal/web"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse battery staple"
)

// testEnv holds the resources shared by the sign-in specs.
type testEnv struct {
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	issuer    *auth.Issuer
	server    *httptest.Server
	userID    ulid.ULID
}

func setupTestEnv() (*testEnv, error) {
	ctx := context.Background()
	env := &testEnv{ctx: ctx}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("signon_test"),
		postgres.WithUsername("signon"),
		postgres.WithPassword("signon"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		env.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	env.pool, err = store.Connect(ctx, connStr, store.ConnectOptions{MaxRetries: 3})
	if err != nil {
		env.cleanup()
		return nil, err
	}

	hasher, err := auth.NewPBKDF2Hasher(auth.MinPBKDF2Iterations)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	salt, err := auth.GenerateSalt()
	if err != nil {
		env.cleanup()
		return nil, err
	}

	now := time.Now().UTC()
	env.userID = ulid.Make()
	users := authpg.NewUserRepository(env.pool)
	if err := users.Create(ctx, &auth.User{
		ID:             env.userID,
		Email:          testEmail,
		HashedPassword: hasher.DeriveHash(testPassword, salt),
		Salt:           salt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		env.cleanup()
		return nil, err
	}

	env.issuer, err = auth.NewIssuer(authpg.NewSessionStore(env.pool), auth.IssuerConfig{TTL: time.Hour})
	if err != nil {
		env.cleanup()
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(GinkgoWriter, nil))
	svc, err := auth.NewService(users, env.issuer, hasher, auth.WithLogger(logger))
	if err != nil {
		env.cleanup()
		return nil, err
	}
	webServer, err := web.NewServer(svc, web.WithLogger(logger))
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.server = httptest.NewServer(webServer.Handler())
	return env, nil
}

func (e *testEnv) cleanup() {
	if e.server != nil {
		e.server.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

// client does not follow redirects so 303 responses can be inspected.
func (e *testEnv) client() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func (e *testEnv) signIn(email, password string, asJSON bool) *http.Response {
	form := url.Values{"email": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(e.ctx, http.MethodPost, e.server.URL+web.RouteSignIn,
		strings.NewReader(form.Encode()))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := e.client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func (e *testEnv) session(cookie *http.Cookie) *http.Response {
	req, err := http.NewRequestWithContext(e.ctx, http.MethodGet, e.server.URL+web.RouteSession, nil)
	Expect(err).NotTo(HaveOccurred())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := e.client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.DefaultCookieName {
			return c
		}
	}
	return nil
}

func decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, v)).To(Succeed())
}

var _ = Describe("Sign-in over HTTP", Ordered, func() {
	var env *testEnv

	BeforeAll(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if env != nil {
			env.cleanup()
		}
	})

	Describe("successful sign-in", func() {
		It("sets a session cookie and redirects", func() {
			resp := env.signIn(testEmail, testPassword, false)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(auth.DefaultRedirectTarget))

			cookie := sessionCookie(resp)
			Expect(cookie).NotTo(BeNil())
			Expect(cookie.Value).NotTo(BeEmpty())
			Expect(cookie.HttpOnly).To(BeTrue())
		})

		It("issues a session that validates and belongs to the user", func() {
			resp := env.signIn(testEmail, testPassword, true)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			cookie := sessionCookie(resp)
			resp.Body.Close()
			Expect(cookie).NotTo(BeNil())

			session, err := env.issuer.ValidateSession(env.ctx, cookie.Value)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.UserID).To(Equal(env.userID))

			sessResp := env.session(cookie)
			Expect(sessResp.StatusCode).To(Equal(http.StatusOK))
			var body struct {
				UserID string `json:"user_id"`
			}
			decode(sessResp, &body)
			Expect(body.UserID).To(Equal(env.userID.String()))
		})

		It("stores only the token hash", func() {
			resp := env.signIn(testEmail, testPassword, true)
			cookie := sessionCookie(resp)
			resp.Body.Close()
			Expect(cookie).NotTo(BeNil())

			var matches int
			err := env.pool.QueryRow(env.ctx,
				`SELECT count(*) FROM sessions WHERE token_hash = $1`, cookie.Value).Scan(&matches)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeZero())

			err = env.pool.QueryRow(env.ctx,
				`SELECT count(*) FROM sessions WHERE token_hash = $1`, auth.HashSessionToken(cookie.Value)).Scan(&matches)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(Equal(1))
		})
	})

	Describe("rejected sign-in", func() {
		type failureBody struct {
			Success bool                   `json:"success"`
			Error   string                 `json:"error"`
			Toast   *auth.PresentationHint `json:"toast"`
		}

		It("rejects a wrong password without a cookie", func() {
			resp := env.signIn(testEmail, "wrong", true)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(sessionCookie(resp)).To(BeNil())

			var body failureBody
			decode(resp, &body)
			Expect(body.Success).To(BeFalse())
			Expect(body.Toast).NotTo(BeNil())
		})

		It("presents an unknown email like a wrong password", func() {
			wrong := env.signIn(testEmail, "wrong", true)
			var wrongBody failureBody
			decode(wrong, &wrongBody)

			unknown := env.signIn("nobody@example.com", testPassword, true)
			Expect(unknown.StatusCode).To(Equal(wrong.StatusCode))
			var unknownBody failureBody
			decode(unknown, &unknownBody)

			Expect(unknownBody).To(Equal(wrongBody))
		})

		It("rejects missing fields as invalid input", func() {
			resp := env.signIn("", "", true)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("sign-out", func() {
		It("invalidates the session", func() {
			resp := env.signIn(testEmail, testPassword, true)
			cookie := sessionCookie(resp)
			resp.Body.Close()
			Expect(cookie).NotTo(BeNil())

			req, err := http.NewRequestWithContext(env.ctx, http.MethodPost, env.server.URL+web.RouteSignOut, nil)
			Expect(err).NotTo(HaveOccurred())
			req.AddCookie(cookie)
			outResp, err := env.client().Do(req)
			Expect(err).NotTo(HaveOccurred())
			outResp.Body.Close()
			Expect(outResp.StatusCode).To(Equal(http.StatusSeeOther))

			after := env.session(cookie)
			after.Body.Close()
			Expect(after.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("revocation and sweeping", func() {
		It("revokes every session of a user", func() {
			resp := env.signIn(testEmail, testPassword, true)
			cookie := sessionCookie(resp)
			resp.Body.Close()

			Expect(env.issuer.InvalidateUserSessions(env.ctx, env.userID)).To(Succeed())

			_, err := env.issuer.ValidateSession(env.ctx, cookie.Value)
			Expect(err).To(MatchError(auth.ErrInvalidSession))
		})

		It("sweeps expired sessions", func() {
			_, err := env.pool.Exec(env.ctx, `
				INSERT INTO sessions (id, user_id, token_hash, attributes, created_at, expires_at)
				VALUES ($1, $2, $3, '{}', now() - interval '2 hours', now() - interval '1 hour')
			`, ulid.Make().String(), env.userID.String(), auth.HashSessionToken("stale"))
			Expect(err).NotTo(HaveOccurred())

			removed, err := env.issuer.SweepExpired(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeNumerically(">=", 1))
		})
	})
})
