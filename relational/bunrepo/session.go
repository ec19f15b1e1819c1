/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bunrepo

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/repository"
	"github.com/uptrace/bun"
)

// Session binds repositories and a unit of work to one bun database handle.
// While a transaction is open every repository on the session runs inside it.
type Session struct {
	mu        sync.Mutex
	db        *bun.DB
	tx        *bun.Tx
	closed    bool
	ownsDB    bool
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

// NewSession wraps an already configured bun.DB. Closing the session does not
// close db.
func NewSession(db *bun.DB, opts ...SessionOption) *Session {
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

// DB returns the underlying handle
func (s *Session) DB() *bun.DB {
	return s.db
}

// Validator returns the validator shared by repositories on this session.
func (s *Session) Validator() *repository.Validator {
	return s.validator
}

// IDB returns the open transaction, or the database handle when none is open.
func (s *Session) IDB() (bun.IDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.ErrDisposed
	}
	if s.tx != nil {
		return *s.tx, nil
	}
	return s.db, nil
}

// InTx runs fn inside a savepoint of the open transaction, or inside a local
// transaction when none is open. Either is committed only when fn succeeds,
// so a failed fn leaves no writes behind.
func (s *Session) InTx(ctx context.Context, fn func(ctx context.Context, idb bun.IDB) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.ErrDisposed
	}
	tx := s.tx
	s.mu.Unlock()

	if tx != nil {
		return tx.RunInTx(ctx, nil, func(ctx context.Context, sp bun.Tx) error {
			return fn(ctx, sp)
		})
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
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
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	s.tx = &tx
	return nil
}

// CommitTx commits the physical transaction.
func (s *Session) CommitTx(context.Context) error {
	tx, err := s.takeTx()
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RollbackTx rolls back the physical transaction.
func (s *Session) RollbackTx(context.Context) error {
	tx, err := s.takeTx()
	if err != nil {
		return err
	}
	return tx.Rollback()
}

func (s *Session) takeTx() (*bun.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.ErrDisposed
	}
	if s.tx == nil {
		return nil, sql.ErrTxDone
	}
	tx := s.tx
	s.tx = nil
	return tx, nil
}

// Close rolls back any open transaction and releases the session. The
// database handle is closed only when the session opened it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil {
			s.log.Warn("rollback on close failed", "error", err)
		}
		s.tx = nil
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
