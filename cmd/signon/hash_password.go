// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/signon/internal/auth"
)

// hashedPassword is the output of hash-password.
type hashedPassword struct {
	Algorithm      string `json:"algorithm"`
	Iterations     int    `json:"iterations,omitempty"`
	Salt           string `json:"salt"`
	HashedPassword string `json:"hashed_password"`
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Derive a salt and hash for a password read from stdin",
		Long: `Read a password from the first line of stdin and print a fresh salt with
the derived hash, as stored in the users table. No account is created.`,
		Args: cobra.NoArgs,
		RunE: runHashPassword,
	}
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	password, err := readSecret(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if password == "" {
		return oops.Code("PASSWORD_EMPTY").Errorf("no password on stdin")
	}

	hasher, err := auth.NewHasher(cfg.HashAlgorithm, cfg.PBKDF2Iterations)
	if err != nil {
		return err
	}
	salt, err := auth.GenerateSalt()
	if err != nil {
		return err
	}

	out := hashedPassword{
		Algorithm:      cfg.HashAlgorithm,
		Salt:           salt,
		HashedPassword: hasher.DeriveHash(password, salt),
	}
	if p, ok := hasher.(*auth.PBKDF2Hasher); ok {
		out.Iterations = p.Iterations()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}
