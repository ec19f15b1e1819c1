/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bunrepo

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Sqlite", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Output: &buf})

		session, err := Open(ctx, Config{
			Driver:             "sqlite",
			DSN:                "file:open_test?mode=memory&cache=shared",
			MaxOpenConns:       1,
			SlowQueryThreshold: time.Nanosecond,
			Logger:             log,
		})
		require.NoError(t, err)

		_, err = session.DB().ExecContext(ctx, "SELECT 1")
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "database connected")
		assert.Contains(t, buf.String(), "slow query")

		require.NoError(t, session.Close())
		_, err = session.IDB()
		assert.ErrorIs(t, err, errors.ErrDisposed)
		assert.NoError(t, session.Close(), "second close is a no-op")
	})

	t.Run("UnsupportedDriver", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "oracle", DSN: "x"})
		assert.ErrorContains(t, err, "unsupported database driver")
	})

	t.Run("EmptyDSN", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "sqlite"})
		assert.Error(t, err)
	})
}

func TestSession_Transactions(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)

	assert.ErrorIs(t, session.CommitTx(ctx), sql.ErrTxDone)
	require.NoError(t, session.BeginTx(ctx))
	assert.Error(t, session.BeginTx(ctx), "only one physical transaction per session")
	require.NoError(t, session.RollbackTx(ctx))
}
