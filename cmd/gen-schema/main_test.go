// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/signon/internal/config"
	"github.com/holomush/signon/pkg/errutil"
)

func TestRun_WritesSchema(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "nested", "schemas", "config.schema.json")
	var out bytes.Buffer

	require.NoError(t, run(outPath, &out))
	assert.Equal(t, "Generated "+outPath+"\n", out.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])

	want, err := config.GenerateSchema()
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(data))
}

func TestRun_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err := run(filepath.Join(blocker, "config.schema.json"), &bytes.Buffer{})
	errutil.AssertErrorCode(t, err, "XDG_MKDIR_FAILED")
}
