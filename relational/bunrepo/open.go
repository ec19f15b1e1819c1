/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bunrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/suparena/entityrepo/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// Config describes how Open connects.
type Config struct {
	// Driver is one of mysql, postgres or sqlite.
	Driver string
	// DSN is passed to the database/sql driver unchanged.
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// QueryLog prints every query through bundebug. BUNDEBUG in the
	// environment overrides it.
	QueryLog bool
	// SlowQueryThreshold logs successful queries slower than the threshold at warn level.
	SlowQueryThreshold time.Duration

	Logger logger.Logger
}

// Open connects to the configured database and returns a session that owns
// the connection pool.
func Open(ctx context.Context, cfg Config, opts ...SessionOption) (*Session, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	log.Info("database connected", "driver", cfg.Driver)

	s := NewSession(db, append([]SessionOption{WithSessionLogger(log)}, opts...)...)
	s.ownsDB = true
	return s, nil
}

func openDB(cfg Config) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	var (
		sqlDB *sql.DB
		db    *bun.DB
		err   error
	)
	switch cfg.Driver {
	case "mysql":
		if sqlDB, err = sql.Open("mysql", cfg.DSN); err == nil {
			db = bun.NewDB(sqlDB, mysqldialect.New())
		}
	case "postgres", "postgresql":
		if sqlDB, err = sql.Open("postgres", cfg.DSN); err == nil {
			db = bun.NewDB(sqlDB, pgdialect.New())
		}
	case "sqlite", "sqlite3":
		if sqlDB, err = sql.Open(sqliteshim.ShimName, cfg.DSN); err == nil {
			db = bun.NewDB(sqlDB, sqlitedialect.New())
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s, supported drivers: [mysql postgres sqlite]", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.QueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if cfg.SlowQueryThreshold > 0 && cfg.Logger != nil {
		db.AddQueryHook(&slowQueryHook{slowTime: cfg.SlowQueryThreshold, log: cfg.Logger})
	}
	return db, nil
}

type slowQueryHook struct {
	slowTime time.Duration
	log      logger.Logger
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if duration := time.Since(event.StartTime); duration > h.slowTime {
		h.log.Warn("slow query",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"operation", event.Operation(),
			"query", event.Query,
		)
	}
}
