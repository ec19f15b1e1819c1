/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgxrepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/repository"
)

// Querier runs statements. Both DB and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// DB is the minimal pool interface, satisfied by *pgxpool.Pool and
// pgxmock.PgxPoolIface.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Session binds repositories and a unit of work to one pool.
type Session struct {
	mu        sync.Mutex
	db        DB
	tx        pgx.Tx
	closed    bool
	release   func()
	validator *repository.Validator
	log       logger.Logger
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSessionLogger sets the session logger
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithValidator replaces the entity validator. Passing nil disables validation.
func WithValidator(v *repository.Validator) SessionOption {
	return func(s *Session) {
		s.validator = v
	}
}

// NewSession wraps an already configured pool. Closing the session does not
// close db.
func NewSession(db DB, opts ...SessionOption) *Session {
	s := &Session{
		db:        db,
		validator: repository.NewValidator(),
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config holds PostgreSQL connection settings.
type Config struct {
	ConnString        string
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// Connect opens a pool and returns a session that owns it.
func Connect(ctx context.Context, cfg Config, opts ...SessionOption) (*Session, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := NewSession(pool, opts...)
	s.release = pool.Close
	s.log.Info("database connection established",
		"host", poolCfg.ConnConfig.Host,
		"db_name", poolCfg.ConnConfig.Database,
	)
	return s, nil
}

// Validator returns the validator shared by repositories on this session.
func (s *Session) Validator() *repository.Validator {
	return s.validator
}

// Querier returns the open transaction, or the pool when none is open.
func (s *Session) Querier() (Querier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.ErrDisposed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	return s.db, nil
}

// InTx runs fn inside a savepoint of the open transaction, or inside a local
// transaction when none is open. Either is committed only when fn succeeds,
// so a failed fn leaves no writes behind.
func (s *Session) InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) (err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.ErrDisposed
	}
	open := s.tx
	s.mu.Unlock()

	begin := s.db.Begin
	if open != nil {
		// Begin on a pgx.Tx opens a savepoint
		begin = open.Begin
	}

	tx, err := begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.log.Error("failed to rollback transaction", "error", rbErr)
			}
		}
	}()
	if err = fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// BeginTx opens the physical transaction.
func (s *Session) BeginTx(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrDisposed
	}
	if s.tx != nil {
		return fmt.Errorf("begin: transaction already open")
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

// CommitTx commits the physical transaction.
func (s *Session) CommitTx(ctx context.Context) error {
	tx, err := s.takeTx()
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RollbackTx rolls back the physical transaction.
func (s *Session) RollbackTx(ctx context.Context) error {
	tx, err := s.takeTx()
	if err != nil {
		return err
	}
	return tx.Rollback(ctx)
}

func (s *Session) takeTx() (pgx.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.ErrDisposed
	}
	if s.tx == nil {
		return nil, pgx.ErrTxClosed
	}
	tx := s.tx
	s.tx = nil
	return tx, nil
}

// Close rolls back any open transaction and releases the session. The pool
// is closed only when Connect opened it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx != nil {
		if err := s.tx.Rollback(context.Background()); err != nil {
			s.log.Warn("rollback on close failed", "error", err)
		}
		s.tx = nil
	}
	if s.release != nil {
		s.release()
		s.log.Info("database connection closed")
	}
	return nil
}
