// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/signon/internal/auth"
	"github.com/holomush/signon/internal/config"
	"github.com/holomush/signon/internal/logging"
)

const serviceName = "signon"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the signon CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "signon",
		Short: "signon - email/password sign-in service",
		Long: `signon verifies email/password credentials against stored PBKDF2 or
argon2id hashes and issues cookie-carried sessions backed by PostgreSQL or Redis.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadDotEnv()
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/signon/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newHashPasswordCmd())
	cmd.AddCommand(newSignInCmd(deps))
	cmd.AddCommand(newSessionsCmd(deps))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newVersionCmd prints build information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), serviceName+" "+versionString()+"\n")
			return err //nolint:wrapcheck // stdout write
		},
	}
}

// loadDotEnv loads .env from the working directory into the environment.
// A missing file is not an error; variables already set win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("DOTENV_LOAD_FAILED").With("path", ".env").Wrap(err)
	}
	return nil
}

// loadConfig reads --config, or the XDG default when it exists, layered
// under the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, explicit := configFile, configFile != ""
	if !explicit {
		path = config.DefaultPath()
	}
	return config.Load(cmd.Flags(), path, explicit)
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
		Writer:  w,
	}), nil
}

func newIssuer(cfg *config.Config, sessions auth.SessionStore) (*auth.Issuer, error) {
	return auth.NewIssuer(sessions, auth.IssuerConfig{
		TTL:    cfg.SessionTTL,
		Cookie: cfg.Cookie(),
	})
}

// newService wires the sign-in orchestrator from cfg. recorder may be nil.
func newService(cfg *config.Config, backend *Backend, logger *slog.Logger, recorder auth.Recorder) (*auth.Service, error) {
	hasher, err := auth.NewHasher(cfg.HashAlgorithm, cfg.PBKDF2Iterations)
	if err != nil {
		return nil, err
	}
	issuer, err := newIssuer(cfg, backend.Sessions)
	if err != nil {
		return nil, err
	}

	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithRedirectTarget(cfg.RedirectTarget),
		auth.WithTimeout(cfg.RequestTimeout),
		auth.WithUniformFailures(cfg.UniformFailures),
	}
	if recorder != nil {
		opts = append(opts, auth.WithRecorder(recorder))
	}
	return auth.NewService(backend.Users, issuer, hasher, opts...)
}

// readSecret returns the first line of r without its line ending.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("STDIN_READ_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
