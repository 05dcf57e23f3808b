// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/signon/internal/auth"
)

func newSessionsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain stored sessions",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "sweep",
			Short: "Delete expired sessions once",
			Args:  cobra.NoArgs,
			RunE: withIssuer(deps, func(cmd *cobra.Command, issuer *auth.Issuer, _ []string) error {
				n, err := issuer.SweepExpired(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("Removed %d expired session(s)\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "revoke USER_ID",
			Short: "Delete every session of a user",
			Args:  cobra.ExactArgs(1),
			RunE: withIssuer(deps, func(cmd *cobra.Command, issuer *auth.Issuer, args []string) error {
				userID, err := ulid.ParseStrict(args[0])
				if err != nil {
					return oops.Code("INVALID_USER_ID").With("user_id", args[0]).Wrap(err)
				}
				if err := issuer.InvalidateUserSessions(cmd.Context(), userID); err != nil {
					return err
				}
				cmd.Printf("Revoked all sessions of %s\n", userID)
				return nil
			}),
		},
	)
	return cmd
}

// withIssuer opens the configured backend and builds an issuer around fn.
func withIssuer(deps *Deps, fn func(cmd *cobra.Command, issuer *auth.Issuer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
			return err
		}

		backend, err := deps.BackendFactory(cmd.Context(), cfg)
		if err != nil {
			return oops.Code("BACKEND_OPEN_FAILED").With("operation", "open backend").Wrap(err)
		}
		defer func() { _ = backend.Close() }()

		issuer, err := newIssuer(cfg, backend.Sessions)
		if err != nil {
			return err
		}
		return fn(cmd, issuer, args)
	}
}
