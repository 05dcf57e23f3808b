// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/signon/internal/auth"
)

// signInResult is the JSON printed by the sign-in command.
type signInResult struct {
	Success   bool                   `json:"success"`
	Kind      string                 `json:"kind,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Toast     *auth.PresentationHint `json:"toast,omitempty"`
	Redirect  string                 `json:"redirect,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	Cookie    *auth.CookieDescriptor `json:"cookie,omitempty"`
}

func newSignInCmd(deps *Deps) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "sign-in",
		Short: "Attempt a sign-in with a password read from stdin",
		Long: `Run one sign-in attempt against the configured stores. The password is
read from the first line of stdin and the outcome is printed as JSON. A
successful attempt issues a real session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSignIn(cmd.Context(), cmd, deps, email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func runSignIn(ctx context.Context, cmd *cobra.Command, deps *Deps, email string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	password, err := readSecret(cmd.InOrStdin())
	if err != nil {
		return err
	}

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.Code("BACKEND_OPEN_FAILED").With("operation", "open backend").Wrap(err)
	}
	defer func() { _ = backend.Close() }()

	svc, err := newService(cfg, backend, logger, nil)
	if err != nil {
		return err
	}

	ctx = auth.WithClientInfo(ctx, auth.ClientInfo{UserAgent: serviceName + "-cli/" + version})
	outcome := svc.SignIn(ctx, auth.Credential{Email: email, Password: password})

	result := resultFor(outcome)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}

	if f, ok := outcome.(*auth.Failure); ok {
		return oops.Code("SIGN_IN_FAILED").With("kind", string(f.Kind)).Errorf("%s", f.Display())
	}
	return nil
}

func resultFor(outcome auth.Outcome) signInResult {
	switch o := outcome.(type) {
	case *auth.Success:
		expires := o.Session.ExpiresAt
		return signInResult{
			Success:   true,
			Redirect:  o.RedirectTarget,
			UserID:    o.Session.UserID.String(),
			SessionID: o.Session.ID.String(),
			ExpiresAt: &expires,
			Cookie:    &o.Cookie,
		}
	case *auth.Failure:
		return signInResult{
			Kind:  string(o.Kind),
			Error: o.Message,
			Toast: o.Hint,
		}
	default:
		return signInResult{Kind: string(auth.KindUnexpected)}
	}
}
