// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command gen-schema generates the config file JSON Schema.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/signon/internal/config"
	"github.com/holomush/signon/internal/xdg"
)

const defaultOutPath = "schemas/config.schema.json"

func main() {
	fs := pflag.NewFlagSet("gen-schema", pflag.ExitOnError)
	out := fs.StringP("out", "o", defaultOutPath, "path of the generated schema")
	_ = fs.Parse(os.Args[1:])

	if err := run(*out, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
}

func run(outPath string, w io.Writer) error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}

	if err := xdg.EnsureDir(filepath.Dir(outPath)); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		return oops.Code("SCHEMA_WRITE_FAILED").With("path", outPath).Wrap(err)
	}

	_, err = fmt.Fprintf(w, "Generated %s\n", outPath)
	return err
}
