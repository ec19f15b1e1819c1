/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/repository"
)

const backendName = "memory"

// Loader fills one navigation member of entity. Loaders are keyed by the
// first member of an include path.
type Loader[T any] func(ctx context.Context, entity *T) error

// Repository keeps entities of T in a Store. Filters and sorts use their
// in-memory rendering.
type Repository[T repository.Entity[K], K comparable] struct {
	store     *Store
	typeName  string
	validator *repository.Validator
	refs      map[string]Loader[T]
	colls     map[string]Loader[T]
	log       logger.Logger

	createErr error
	updateErr error
	deleteErr error
}

// Option configures a Repository
type Option[T any] func(*options[T])

type options[T any] struct {
	log       logger.Logger
	validator *repository.Validator
	refs      map[string]Loader[T]
	colls     map[string]Loader[T]
}

// WithLogger sets the repository logger
func WithLogger[T any](l logger.Logger) Option[T] {
	return func(o *options[T]) {
		if l != nil {
			o.log = l
		}
	}
}

// WithValidator replaces the entity validator. Passing nil disables validation.
func WithValidator[T any](v *repository.Validator) Option[T] {
	return func(o *options[T]) {
		o.validator = v
	}
}

// WithReference registers a to-one navigation member.
func WithReference[T any](member string, load Loader[T]) Option[T] {
	return func(o *options[T]) {
		o.refs[member] = load
	}
}

// WithCollection registers a to-many navigation member.
func WithCollection[T any](member string, load Loader[T]) Option[T] {
	return func(o *options[T]) {
		o.colls[member] = load
	}
}

// New returns a repository for T backed by store.
func New[T repository.Entity[K], K comparable](store *Store, opts ...Option[T]) *Repository[T, K] {
	o := options[T]{
		log:       logger.Discard(),
		validator: repository.NewValidator(),
		refs:      make(map[string]Loader[T]),
		colls:     make(map[string]Loader[T]),
	}
	for _, opt := range opts {
		opt(&o)
	}
	name := repository.TypeName[T]()
	return &Repository[T, K]{
		store:     store,
		typeName:  name,
		validator: o.validator,
		refs:      o.refs,
		colls:     o.colls,
		log:       o.log.With("entity", name, "backend", backendName),
	}
}

// WithCreateError makes Create and CreateBulk return err
func (r *Repository[T, K]) WithCreateError(err error) *Repository[T, K] {
	r.createErr = err
	return r
}

// WithUpdateError makes Update and UpdateBulk return err
func (r *Repository[T, K]) WithUpdateError(err error) *Repository[T, K] {
	r.updateErr = err
	return r
}

// WithDeleteError makes Delete and DeleteBulk return err
func (r *Repository[T, K]) WithDeleteError(err error) *Repository[T, K] {
	r.deleteErr = err
	return r
}

// Count returns the number of entities matching filter.
func (r *Repository[T, K]) Count(ctx context.Context, filter *query.Filter[T]) (int, error) {
	items, err := r.all(ctx)
	if err != nil {
		return 0, err
	}
	matched, err := query.Apply(items, query.Query[T]{Filter: filter})
	if err != nil {
		return 0, err
	}
	return repository.CheckCount(int64(len(matched)), r.typeName)
}

// Exists reports whether key is stored.
func (r *Repository[T, K]) Exists(ctx context.Context, key K) (bool, error) {
	if err := repository.CheckKey(key); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := r.store.read(r.typeName, func(t *table) error {
		if t != nil {
			_, found = t.rows[key]
		}
		return nil
	})
	return found, r.fault("exists", key, err)
}

// Retrieve materializes the entities selected by q in insertion order unless q sorts.
func (r *Repository[T, K]) Retrieve(ctx context.Context, q query.Query[T]) ([]T, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, path := range q.Includes {
		if err := r.checkInclude(path); err != nil {
			return nil, err
		}
	}
	items, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	items, err = query.Apply(items, q)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := repository.LoadIncludes[T, K](ctx, r, &items[i], items[i].Key(), q.Includes); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// RetrieveByKey returns the entity stored under key, or nil when absent.
func (r *Repository[T, K]) RetrieveByKey(ctx context.Context, key K, includes ...string) (*T, error) {
	if err := repository.CheckKey(key); err != nil {
		return nil, err
	}
	for _, path := range includes {
		if err := r.checkInclude(path); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		entity T
		found  bool
	)
	err := r.store.read(r.typeName, func(t *table) error {
		if t == nil {
			return nil
		}
		var v any
		if v, found = t.rows[key]; found {
			entity = v.(T)
		}
		return nil
	})
	if err != nil {
		return nil, r.fault("retrieve", key, err)
	}
	if !found {
		return nil, nil
	}
	if err := repository.LoadIncludes[T, K](ctx, r, &entity, key, includes); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Create stores entity unless its key is taken.
func (r *Repository[T, K]) Create(ctx context.Context, entity T) error {
	if err := r.checkWrite(ctx, entity, r.createErr); err != nil {
		return err
	}
	key := entity.Key()
	err := r.store.write(r.typeName, func(t *table) error {
		if _, ok := t.rows[key]; ok {
			return errors.NewAlreadyExistsError(r.typeName, errors.KeyString(key))
		}
		t.put(key, entity)
		return nil
	})
	if err != nil {
		return r.fault("create", key, err)
	}
	r.log.Debug("created", "key", key)
	return nil
}

// Update replaces the stored entity.
func (r *Repository[T, K]) Update(ctx context.Context, entity T) error {
	if err := r.checkWrite(ctx, entity, r.updateErr); err != nil {
		return err
	}
	key := entity.Key()
	err := r.store.write(r.typeName, func(t *table) error {
		if _, ok := t.rows[key]; !ok {
			return errors.NewNotFoundError(r.typeName, errors.KeyString(key))
		}
		t.put(key, entity)
		return nil
	})
	if err != nil {
		return r.fault("update", key, err)
	}
	r.log.Debug("updated", "key", key)
	return nil
}

// Delete removes the stored entity.
func (r *Repository[T, K]) Delete(ctx context.Context, entity T) error {
	if err := repository.CheckEntity[T, K](entity); err != nil {
		return err
	}
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := entity.Key()
	err := r.store.write(r.typeName, func(t *table) error {
		if _, ok := t.rows[key]; !ok {
			return errors.NewNotFoundError(r.typeName, errors.KeyString(key))
		}
		t.remove(key)
		return nil
	})
	if err != nil {
		return r.fault("delete", key, err)
	}
	r.log.Debug("deleted", "key", key)
	return nil
}

func (r *Repository[T, K]) checkWrite(ctx context.Context, entity T, injected error) error {
	if err := repository.CheckEntity[T, K](entity); err != nil {
		return err
	}
	if injected != nil {
		return injected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.validator.Check(entity, r.typeName, errors.KeyString(entity.Key()))
}

// all copies every stored entity in insertion order.
func (r *Repository[T, K]) all(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var items []T
	err := r.store.read(r.typeName, func(t *table) error {
		if t == nil {
			return nil
		}
		items = make([]T, 0, len(t.order))
		for _, k := range t.order {
			items = append(items, t.rows[k].(T))
		}
		return nil
	})
	if err != nil {
		return nil, r.fault("retrieve", nil, err)
	}
	return items, nil
}

// fault turns a disposed store into a Repository fault; domain errors pass through.
func (r *Repository[T, K]) fault(op string, key any, err error) error {
	if err == nil || !stderrors.Is(err, errors.ErrDisposed) {
		return err
	}
	k := ""
	if key != nil {
		k = errors.KeyString(key)
	}
	return errors.NewRepositoryError(op, r.typeName, k, err)
}

func (r *Repository[T, K]) checkInclude(path string) error {
	if _, ok := query.ParsePath(path).Resolve(); !ok {
		return errors.NewArgumentError("includes", fmt.Sprintf("%q is not a navigation path", path))
	}
	member := query.ParsePath(path).Segments()[0]
	if _, ok := r.refs[member]; ok {
		return nil
	}
	if _, ok := r.colls[member]; ok {
		return nil
	}
	return errors.NewArgumentError("includes", fmt.Sprintf("%q is not a navigation member of %s", member, r.typeName))
}

// LoadReference implements repository.Navigator.
func (r *Repository[T, K]) LoadReference(ctx context.Context, entity *T, path string) error {
	load, ok := r.refs[query.ParsePath(path).Segments()[0]]
	if !ok {
		return repository.ErrNotReference
	}
	return load(ctx, entity)
}

// LoadCollection implements repository.Navigator.
func (r *Repository[T, K]) LoadCollection(ctx context.Context, entity *T, path string) error {
	load, ok := r.colls[query.ParsePath(path).Segments()[0]]
	if !ok {
		return fmt.Errorf("%q is not a collection of %s", path, r.typeName)
	}
	return load(ctx, entity)
}
