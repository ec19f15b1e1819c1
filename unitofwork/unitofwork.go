/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package unitofwork

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
)

// ErrNoActiveTransaction is returned by Commit and Rollback when no Begin is outstanding.
var ErrNoActiveTransaction = stderrors.New("no active transaction")

// Transactor is a backend session that can hold one physical transaction.
type Transactor interface {
	BeginTx(ctx context.Context) error
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
	Close() error
}

// UnitOfWork counts nested Begin calls against one session. Only the outermost
// Begin starts a physical transaction, and only the terminal call that brings
// the depth back to zero commits or rolls it back.
type UnitOfWork struct {
	mu       sync.Mutex
	session  Transactor
	depth    int
	disposed bool
	log      logger.Logger
}

// Option configures a UnitOfWork
type Option func(*UnitOfWork)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(u *UnitOfWork) {
		if l != nil {
			u.log = l
		}
	}
}

// New binds a unit of work to session.
func New(session Transactor, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{session: session, log: logger.Discard()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Begin increments the depth, starting a physical transaction at depth zero.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return errors.ErrDisposed
	}
	if u.depth == 0 {
		if err := u.session.BeginTx(ctx); err != nil {
			return err
		}
		u.log.Debug("transaction started")
	}
	u.depth++
	return nil
}

// Commit decrements the depth. The call reaching zero commits.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	return u.finish(ctx, "commit", u.session.CommitTx)
}

// Rollback decrements the depth. The call reaching zero rolls back, discarding
// every change made since the outermost Begin, including those of inner
// scopes that already committed.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	return u.finish(ctx, "rollback", u.session.RollbackTx)
}

func (u *UnitOfWork) finish(ctx context.Context, op string, physical func(context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return errors.ErrDisposed
	}
	if u.depth == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoActiveTransaction)
	}
	u.depth--
	if u.depth > 0 {
		return nil
	}
	if err := physical(ctx); err != nil {
		return err
	}
	u.log.Debug("transaction finished", "op", op)
	return nil
}

// Depth returns the number of outstanding Begin calls.
func (u *UnitOfWork) Depth() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.depth
}

// Active reports whether a physical transaction is open.
func (u *UnitOfWork) Active() bool {
	return u.Depth() > 0
}

// Close rolls back an open transaction whatever the depth and releases the
// session. Closing twice is a no-op.
func (u *UnitOfWork) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return nil
	}
	u.disposed = true

	var rollbackErr error
	if u.depth > 0 {
		u.depth = 0
		if rollbackErr = u.session.RollbackTx(context.Background()); rollbackErr != nil {
			u.log.Warn("rollback on close failed", "error", rollbackErr)
		}
	}
	if err := u.session.Close(); err != nil {
		return err
	}
	return rollbackErr
}

// Run executes fn inside Begin/Commit, rolling back when fn fails. Nested Run
// calls join the outer transaction.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := u.Begin(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rbErr := u.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return u.Commit(ctx)
}
