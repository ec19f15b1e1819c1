/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bunrepo

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/registry"
	"github.com/suparena/entityrepo/relational/dberrors"
	"github.com/suparena/entityrepo/repository"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Repository persists T through bun. T must be a struct type registered with
// bun struct tags and K its primary key.
type Repository[T repository.Entity[K], K comparable] struct {
	session  *Session
	table    *schema.Table
	keyOf    registry.KeyAccessor[K]
	typeName string
	log      logger.Logger
}

// Option configures a Repository
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the repository logger
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// New builds a repository for T on session. The key accessor is resolved
// once here: a registered accessor wins, otherwise a single-column primary
// key is addressed by the key value itself.
func New[T repository.Entity[K], K comparable](session *Session, opts ...Option) (*Repository[T, K], error) {
	if session == nil {
		return nil, errors.NewArgumentError("session", "must not be nil")
	}
	o := options{log: session.log}
	for _, opt := range opts {
		opt(&o)
	}

	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, errors.NewArgumentError("T", fmt.Sprintf("%v is not a struct type", typ))
	}
	table := session.db.Table(typ)
	if len(table.PKs) == 0 {
		return nil, errors.NewArgumentError("T", fmt.Sprintf("%v declares no primary key", typ))
	}

	keyOf, found, err := registry.GetKeyAccessor[T, K]()
	if err != nil {
		return nil, errors.NewArgumentError("K", err.Error())
	}
	if !found {
		if len(table.PKs) > 1 {
			return nil, errors.NewArgumentError("K",
				fmt.Sprintf("%v has a composite primary key; register a key accessor", typ))
		}
		keyOf = func(key K) []any { return []any{key} }
	}

	return &Repository[T, K]{
		session:  session,
		table:    table,
		keyOf:    keyOf,
		typeName: repository.TypeName[T](),
		log:      o.log.With("entity", repository.TypeName[T]()),
	}, nil
}

func (r *Repository[T, K]) keyString(key K) string {
	return errors.KeyString(key)
}

// wherePK addresses the row stored under key.
func (r *Repository[T, K]) wherePK(q *bun.SelectQuery, key K) *bun.SelectQuery {
	values := r.keyOf(key)
	for i, pk := range r.table.PKs {
		q = q.Where("?TableAlias.? = ?", bun.Ident(pk.Name), values[i])
	}
	return q
}

func (r *Repository[T, K]) applyFilter(q *bun.SelectQuery, filter *query.Filter[T]) (*bun.SelectQuery, error) {
	if filter == nil {
		return q, nil
	}
	cond, args, err := filter.ToSQL()
	if err != nil {
		return nil, err
	}
	return q.Where(cond, args...), nil
}

// Count returns the number of rows matching filter.
func (r *Repository[T, K]) Count(ctx context.Context, filter *query.Filter[T]) (int, error) {
	idb, err := r.session.IDB()
	if err != nil {
		return 0, dberrors.Translate("count", r.typeName, "", err)
	}
	q, err := r.applyFilter(idb.NewSelect().Model((*T)(nil)), filter)
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, dberrors.Translate("count", r.typeName, "", err)
	}
	return repository.CheckCount(int64(n), r.typeName)
}

// Exists probes the primary key without materializing the row.
func (r *Repository[T, K]) Exists(ctx context.Context, key K) (bool, error) {
	if err := repository.CheckKey(key); err != nil {
		return false, err
	}
	idb, err := r.session.IDB()
	if err != nil {
		return false, dberrors.Translate("exists", r.typeName, r.keyString(key), err)
	}
	ok, err := r.wherePK(idb.NewSelect().Model((*T)(nil)), key).Exists(ctx)
	if err != nil {
		return false, dberrors.Translate("exists", r.typeName, r.keyString(key), err)
	}
	return ok, nil
}

// Retrieve runs q: filter, sort, skip/take, then relations in order.
func (r *Repository[T, K]) Retrieve(ctx context.Context, q query.Query[T]) ([]T, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, include := range q.Includes {
		if _, err := resolveNavigation(r.table, include); err != nil {
			return nil, err
		}
	}
	order, err := q.SQLOrder()
	if err != nil {
		return nil, err
	}
	idb, err := r.session.IDB()
	if err != nil {
		return nil, dberrors.Translate("retrieve", r.typeName, "", err)
	}

	items := make([]T, 0)
	sel, err := r.applyFilter(idb.NewSelect().Model(&items), q.Filter)
	if err != nil {
		return nil, err
	}
	for _, clause := range order {
		sel = sel.OrderExpr(clause)
	}
	if q.Paging.Enabled() {
		sel = sel.Offset(q.Paging.Skip()).Limit(q.Paging.Take())
	}
	for _, include := range q.Includes {
		sel = sel.Relation(include)
	}

	if err := sel.Scan(ctx); err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, dberrors.Translate("retrieve", r.typeName, "", err)
	}
	r.log.Debug("retrieved", "count", len(items))
	return items, nil
}

// RetrieveByKey returns the row stored under key, or nil when absent.
// Includes are loaded one at a time, retrying to-many navigations as
// collection loads.
func (r *Repository[T, K]) RetrieveByKey(ctx context.Context, key K, includes ...string) (*T, error) {
	if err := repository.CheckKey(key); err != nil {
		return nil, err
	}
	idb, err := r.session.IDB()
	if err != nil {
		return nil, dberrors.Translate("retrieve", r.typeName, r.keyString(key), err)
	}

	entity := new(T)
	if err := r.wherePK(idb.NewSelect().Model(entity), key).Scan(ctx); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dberrors.Translate("retrieve", r.typeName, r.keyString(key), err)
	}

	nav := &navigator[T]{idb: idb, table: r.table}
	if err := repository.LoadIncludes[T, K](ctx, nav, entity, key, includes); err != nil {
		return nil, err
	}
	return entity, nil
}

// Create inserts entity. A taken key fails with AlreadyExists.
func (r *Repository[T, K]) Create(ctx context.Context, entity T) error {
	if err := repository.CheckEntity[T, K](entity); err != nil {
		return err
	}
	key := r.keyString(entity.Key())
	if err := r.session.validator.Check(entity, r.typeName, key); err != nil {
		return err
	}
	idb, err := r.session.IDB()
	if err != nil {
		return dberrors.Translate("create", r.typeName, key, err)
	}

	exists, err := r.Exists(ctx, entity.Key())
	if err != nil {
		return err
	}
	if exists {
		return errors.NewAlreadyExistsError(r.typeName, key)
	}
	if _, err := idb.NewInsert().Model(&entity).Exec(ctx); err != nil {
		return dberrors.Translate("create", r.typeName, key, err)
	}
	r.log.Debug("created", "key", key)
	return nil
}

// Update replaces the stored row. An absent key fails with NotFound.
func (r *Repository[T, K]) Update(ctx context.Context, entity T) error {
	if err := repository.CheckEntity[T, K](entity); err != nil {
		return err
	}
	key := r.keyString(entity.Key())
	if err := r.session.validator.Check(entity, r.typeName, key); err != nil {
		return err
	}
	return r.writeExisting(ctx, "update", entity, func(idb bun.IDB) (sql.Result, error) {
		return idb.NewUpdate().Model(&entity).WherePK().Exec(ctx)
	})
}

// Delete removes the stored row. An absent key fails with NotFound.
func (r *Repository[T, K]) Delete(ctx context.Context, entity T) error {
	if err := repository.CheckEntity[T, K](entity); err != nil {
		return err
	}
	return r.writeExisting(ctx, "delete", entity, func(idb bun.IDB) (sql.Result, error) {
		return idb.NewDelete().Model(&entity).WherePK().Exec(ctx)
	})
}

// writeExisting checks the key is stored, then runs exec. A write that
// touches no row lost a race with a concurrent delete.
func (r *Repository[T, K]) writeExisting(ctx context.Context, op string, entity T, exec func(bun.IDB) (sql.Result, error)) error {
	key := r.keyString(entity.Key())
	exists, err := r.Exists(ctx, entity.Key())
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFoundError(r.typeName, key)
	}

	idb, err := r.session.IDB()
	if err != nil {
		return dberrors.Translate(op, r.typeName, key, err)
	}
	res, err := exec(idb)
	if err != nil {
		return dberrors.Translate(op, r.typeName, key, err)
	}
	if err := checkAffected(res, 1, op, r.typeName, key); err != nil {
		return err
	}
	r.log.Debug(op+"d", "key", key)
	return nil
}

func checkAffected(res sql.Result, want int64, op, entityType, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewRepositoryError(op, entityType, key, err)
	}
	if n < want {
		return errors.NewRepositoryError(op, entityType, key,
			fmt.Errorf("%w: %d of %d rows affected", errors.ErrConcurrencyConflict, n, want))
	}
	return nil
}
