/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
)

// Store is the in-memory session shared by every memory repository built on
// it. It implements unitofwork.Transactor: BeginTx snapshots all tables and
// RollbackTx restores the snapshot.
type Store struct {
	mu       sync.RWMutex
	tables   map[string]*table
	snapshot map[string]*table
	inTx     bool
	closed   bool
	log      logger.Logger
}

// table keeps rows in insertion order so unsorted reads are stable.
type table struct {
	order []any
	rows  map[any]any
}

func newTable() *table {
	return &table{rows: make(map[any]any)}
}

func (t *table) clone() *table {
	c := &table{order: append([]any(nil), t.order...), rows: make(map[any]any, len(t.rows))}
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

func (t *table) put(key, value any) {
	if _, ok := t.rows[key]; !ok {
		t.order = append(t.order, key)
	}
	t.rows[key] = value
}

func (t *table) remove(key any) {
	if _, ok := t.rows[key]; !ok {
		return
	}
	delete(t.rows, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreLogger sets the store logger
func WithStoreLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{tables: make(map[string]*table), log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// read runs fn under the read lock with the named table, which may be nil.
func (s *Store) read(name string, fn func(*table) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrDisposed
	}
	return fn(s.tables[name])
}

// write runs fn under the write lock with the named table, creating it.
func (s *Store) write(name string, fn func(*table) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrDisposed
	}
	t, ok := s.tables[name]
	if !ok {
		t = newTable()
		s.tables[name] = t
	}
	return fn(t)
}

// InTx reports whether a transaction is open.
func (s *Store) InTx() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inTx
}

// BeginTx snapshots every table.
func (s *Store) BeginTx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrDisposed
	}
	if s.inTx {
		return errors.NewArgumentError("transaction", "already open on this store")
	}
	s.snapshot = make(map[string]*table, len(s.tables))
	for name, t := range s.tables {
		s.snapshot[name] = t.clone()
	}
	s.inTx = true
	s.log.Debug("transaction started")
	return nil
}

// CommitTx discards the snapshot.
func (s *Store) CommitTx(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrDisposed
	}
	if !s.inTx {
		return sql.ErrTxDone
	}
	s.snapshot, s.inTx = nil, false
	s.log.Debug("transaction committed")
	return nil
}

// RollbackTx restores the snapshot taken by BeginTx.
func (s *Store) RollbackTx(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrDisposed
	}
	if !s.inTx {
		return sql.ErrTxDone
	}
	s.rollback()
	s.log.Debug("transaction rolled back")
	return nil
}

func (s *Store) rollback() {
	s.tables, s.snapshot, s.inTx = s.snapshot, nil, false
}

// Close rolls back an open transaction and disposes the store. Later calls
// fail with errors.ErrDisposed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.inTx {
		s.rollback()
	}
	s.closed = true
	s.tables = nil
	return nil
}
