/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package service

import (
	"context"
	"time"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/repository"
)

// Service exposes a repository to application code. Repository faults leave
// it as ServiceErrors chaining the original fault; every other error kind is
// returned unchanged.
type Service[T repository.Entity[K], K comparable] struct {
	repo      repository.Repository[T, K]
	typeName  string
	observers []Observer
	log       logger.Logger
	now       func() time.Time
}

// Option configures a Service
type Option func(*config)

type config struct {
	observers []Observer
	log       logger.Logger
	now       func() time.Time
}

// WithObserver adds an observer notified after every call.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger sets the logger used for observer failures.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock sets the clock used to time calls.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// New wraps repo.
func New[T repository.Entity[K], K comparable](repo repository.Repository[T, K], opts ...Option) *Service[T, K] {
	c := config{log: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	name := repository.TypeName[T]()
	return &Service[T, K]{
		repo:      repo,
		typeName:  name,
		observers: c.observers,
		log:       c.log.With("entity", name),
		now:       c.now,
	}
}

// Repository returns the wrapped repository.
func (s *Service[T, K]) Repository() repository.Repository[T, K] {
	return s.repo
}

// Count counts entities matching filter.
func (s *Service[T, K]) Count(ctx context.Context, filter *query.Filter[T]) (int, error) {
	start := s.now()
	n, err := s.repo.Count(ctx, filter)
	return n, s.done(ctx, start, Event{Op: OpCount, Affected: n}, err)
}

// Exists reports whether key is stored.
func (s *Service[T, K]) Exists(ctx context.Context, key K) (bool, error) {
	start := s.now()
	ok, err := s.repo.Exists(ctx, key)
	return ok, s.done(ctx, start, Event{Op: OpExists, Key: errors.KeyString(key)}, err)
}

// List returns the entities selected by q.
func (s *Service[T, K]) List(ctx context.Context, q query.Query[T]) ([]T, error) {
	start := s.now()
	items, err := s.repo.Retrieve(ctx, q)
	return items, s.done(ctx, start, Event{Op: OpList, Affected: len(items)}, err)
}

// Get returns the entity stored under key. An absent key is a NotFound error.
func (s *Service[T, K]) Get(ctx context.Context, key K, includes ...string) (*T, error) {
	start := s.now()
	entity, err := s.repo.RetrieveByKey(ctx, key, includes...)
	if err == nil && entity == nil {
		err = errors.NewNotFoundError(s.typeName, errors.KeyString(key))
	}
	return entity, s.done(ctx, start, Event{Op: OpGet, Key: errors.KeyString(key)}, err)
}

// Create persists entity.
func (s *Service[T, K]) Create(ctx context.Context, entity T) error {
	return s.write(ctx, OpCreate, entity, s.repo.Create)
}

// Update replaces entity.
func (s *Service[T, K]) Update(ctx context.Context, entity T) error {
	return s.write(ctx, OpUpdate, entity, s.repo.Update)
}

// Delete removes entity.
func (s *Service[T, K]) Delete(ctx context.Context, entity T) error {
	return s.write(ctx, OpDelete, entity, s.repo.Delete)
}

// CreateBulk persists entities as one batch.
func (s *Service[T, K]) CreateBulk(ctx context.Context, entities []T) error {
	return s.batch(ctx, OpCreateBulk, entities, func(b repository.BulkRepository[T, K]) func(context.Context, []T) error {
		return b.CreateBulk
	})
}

// UpdateBulk replaces entities as one batch.
func (s *Service[T, K]) UpdateBulk(ctx context.Context, entities []T) error {
	return s.batch(ctx, OpUpdateBulk, entities, func(b repository.BulkRepository[T, K]) func(context.Context, []T) error {
		return b.UpdateBulk
	})
}

// DeleteBulk removes entities as one batch.
func (s *Service[T, K]) DeleteBulk(ctx context.Context, entities []T) error {
	return s.batch(ctx, OpDeleteBulk, entities, func(b repository.BulkRepository[T, K]) func(context.Context, []T) error {
		return b.DeleteBulk
	})
}

func (s *Service[T, K]) write(ctx context.Context, op Op, entity T, fn func(context.Context, T) error) error {
	start := s.now()
	err := fn(ctx, entity)
	e := Event{Op: op, Affected: 1}
	if err := repository.CheckEntity[T, K](entity); err == nil {
		e.Key = errors.KeyString(entity.Key())
	}
	return s.done(ctx, start, e, err)
}

func (s *Service[T, K]) batch(ctx context.Context, op Op, entities []T, pick func(repository.BulkRepository[T, K]) func(context.Context, []T) error) error {
	start := s.now()
	var err error
	if bulk, ok := s.repo.(repository.BulkRepository[T, K]); ok {
		err = pick(bulk)(ctx, entities)
	} else {
		err = errors.NewNotImplementedError(string(op), "repository")
	}
	return s.done(ctx, start, Event{Op: op, Affected: len(entities)}, err)
}

// done re-wraps Repository faults, then notifies observers.
func (s *Service[T, K]) done(ctx context.Context, start time.Time, e Event, err error) error {
	if err != nil {
		if errors.IsRepositoryError(err) && !errors.IsServiceError(err) {
			err = errors.NewServiceError(string(e.Op), err)
		}
		e.Affected = 0
	}
	e.Type = s.typeName
	e.Duration = s.now().Sub(start)
	e.Err = err
	notify(ctx, s.log, s.observers, e)
	return err
}
