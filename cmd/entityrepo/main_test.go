/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entityrepo"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, entityrepo.Version)
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage:")

	code, _, errOut = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
}

func TestRun_CheckConn(t *testing.T) {
	code, out, _ := runCLI(t, "check-conn", "Region=eu-west-1;AccountName=acme01;AccountKey=s3cr3tk3y")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "OK "))
	assert.NotContains(t, out, "s3cr3tk3y")

	code, _, errOut := runCLI(t, "check-conn", "Region=eu-west-1;AccountName=ab;AccountKey=s3cr3tk3y")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unrecognized account name")

	code, _, _ = runCLI(t, "check-conn")
	assert.Equal(t, 1, code)
}

func TestRun_PingSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "entityrepo.yaml")
	dsn := "file:" + filepath.Join(dir, "ping.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("relational:\n  driver: sqlite\n  dsn: \""+dsn+"\"\nlog:\n  level: disabled\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), nil, 0o600))
	t.Chdir(dir)

	code, out, errOut := runCLI(t, "ping", "-config", cfgPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "sqlite bun reachable")

	code, _, errOut = runCLI(t, "ping", "-config", cfgPath, "-gen", "pgx")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "postgres")
}
