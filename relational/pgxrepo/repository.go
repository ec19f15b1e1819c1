/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgxrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/logger"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/relational/dberrors"
	"github.com/suparena/entityrepo/repository"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repository persists T in the table described by its Mapping. Entities are
// addressed by comparing the identifier column with the key directly.
type Repository[T repository.Entity[K], K comparable] struct {
	session  *Session
	mapping  Mapping[T]
	typeName string
	log      logger.Logger
}

// New builds a repository for T on session.
func New[T repository.Entity[K], K comparable](session *Session, mapping Mapping[T]) (*Repository[T, K], error) {
	if session == nil {
		return nil, errors.NewArgumentError("session", "must not be nil")
	}
	if err := mapping.validate(); err != nil {
		return nil, err
	}
	return &Repository[T, K]{
		session:  session,
		mapping:  mapping,
		typeName: repository.TypeName[T](),
		log:      session.log.With("entity", repository.TypeName[T](), "table", mapping.Table),
	}, nil
}

func (r *Repository[T, K]) querier(op, key string) (Querier, error) {
	q, err := r.session.Querier()
	if err != nil {
		return nil, dberrors.Translate(op, r.typeName, key, err)
	}
	return q, nil
}

func filterCond[T any](filter *query.Filter[T]) (squirrel.Sqlizer, error) {
	if filter == nil {
		return nil, nil
	}
	if filter.Cond == nil {
		return nil, errors.NewArgumentError("filter", "no SQL condition; this backend cannot evaluate predicates in memory")
	}
	return filter.Cond, nil
}

// Count returns the number of rows matching filter.
func (r *Repository[T, K]) Count(ctx context.Context, filter *query.Filter[T]) (int, error) {
	cond, err := filterCond(filter)
	if err != nil {
		return 0, err
	}
	qb := psql.Select("COUNT(*)").From(r.mapping.Table)
	if cond != nil {
		qb = qb.Where(cond)
	}
	sql, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count query: %w", err)
	}

	q, err := r.querier("count", "")
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, dberrors.Translate("count", r.typeName, "", err)
	}
	return repository.CheckCount(n, r.typeName)
}

// Exists compares the identifier column with key.
func (r *Repository[T, K]) Exists(ctx context.Context, key K) (bool, error) {
	if err := repository.CheckKey(key); err != nil {
		return false, err
	}
	return r.exists(ctx, key)
}

func (r *Repository[T, K]) exists(ctx context.Context, key K) (bool, error) {
	keyStr := errors.KeyString(key)
	sql, args, err := psql.Select("1").
		Prefix("SELECT EXISTS(").
		From(r.mapping.Table).
		Where(squirrel.Eq{r.mapping.IDColumn: key}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building exists query: %w", err)
	}

	q, err := r.querier("exists", keyStr)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, dberrors.Translate("exists", r.typeName, keyStr, err)
	}
	return ok, nil
}

// Retrieve runs q: filter, sort, skip/take, then navigation loaders in order.
func (r *Repository[T, K]) Retrieve(ctx context.Context, q query.Query[T]) ([]T, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, include := range q.Includes {
		if err := r.mapping.checkInclude(include); err != nil {
			return nil, err
		}
	}
	cond, err := filterCond(q.Filter)
	if err != nil {
		return nil, err
	}
	order, err := q.SQLOrder()
	if err != nil {
		return nil, err
	}

	qb := psql.Select(r.mapping.Columns...).From(r.mapping.Table)
	if cond != nil {
		qb = qb.Where(cond)
	}
	if len(order) > 0 {
		qb = qb.OrderBy(order...)
	}
	if q.Paging.Enabled() {
		qb = qb.Offset(uint64(q.Paging.Skip())).Limit(uint64(q.Paging.Take()))
	}
	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	db, err := r.querier("retrieve", "")
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := pgxscan.Select(ctx, db, &items, sql, args...); err != nil {
		return nil, dberrors.Translate("retrieve", r.typeName, "", err)
	}

	if len(q.Includes) > 0 {
		nav := &navigator[T]{q: db, mapping: &r.mapping}
		for i := range items {
			if err := repository.LoadIncludes[T, K](ctx, nav, &items[i], items[i].Key(), q.Includes); err != nil {
				return nil, err
			}
		}
	}
	r.log.Debug("retrieved", "count", len(items))
	return items, nil
}

// RetrieveByKey returns the row stored under key, or nil when absent.
func (r *Repository[T, K]) RetrieveByKey(ctx context.Context, key K, includes ...string) (*T, error) {
	if err := repository.CheckKey(key); err != nil {
		return nil, err
	}
	keyStr := errors.KeyString(key)
	sql, args, err := psql.Select(r.mapping.Columns...).
		From(r.mapping.Table).
		Where(squirrel.Eq{r.mapping.IDColumn: key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	db, err := r.querier("retrieve", keyStr)
	if err != nil {
		return nil, err
	}
	entity := new(T)
	if err := pgxscan.Get(ctx, db, entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, dberrors.Translate("retrieve", r.typeName, keyStr, err)
	}

	nav := &navigator[T]{q: db, mapping: &r.mapping}
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
	keyStr := errors.KeyString(entity.Key())
	if err := r.session.validator.Check(entity, r.typeName, keyStr); err != nil {
		return err
	}

	exists, err := r.exists(ctx, entity.Key())
	if err != nil {
		return err
	}
	if exists {
		return errors.NewAlreadyExistsError(r.typeName, keyStr)
	}

	values, err := r.mapping.row(entity)
	if err != nil {
		return errors.NewArgumentError("entity", err.Error())
	}
	sql, args, err := psql.Insert(r.mapping.Table).Columns(r.mapping.Columns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	q, err := r.querier("create", keyStr)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return dberrors.Translate("create", r.typeName, keyStr, err)
	}
	r.log.Debug("created", "key", keyStr)
	return nil
}

// Update upserts entity after checking its key is stored. An absent key
// fails with NotFound.
func (r *Repository[T, K]) Update(ctx context.Context, entity T) error {
	if err := repository.CheckEntity[T, K](entity); err != nil {
		return err
	}
	keyStr := errors.KeyString(entity.Key())
	if err := r.session.validator.Check(entity, r.typeName, keyStr); err != nil {
		return err
	}

	exists, err := r.exists(ctx, entity.Key())
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFoundError(r.typeName, keyStr)
	}

	sql, args, err := r.upsert(entity)
	if err != nil {
		return err
	}
	q, err := r.querier("update", keyStr)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return dberrors.Translate("update", r.typeName, keyStr, err)
	}
	if tag.RowsAffected() == 0 {
		return conflict("update", r.typeName, keyStr, 0, 1)
	}
	r.log.Debug("updated", "key", keyStr)
	return nil
}

func (r *Repository[T, K]) upsert(entity T) (string, []any, error) {
	values, err := r.mapping.row(entity)
	if err != nil {
		return "", nil, errors.NewArgumentError("entity", err.Error())
	}
	set := make([]string, 0, len(r.mapping.Columns))
	for _, c := range r.mapping.mutableColumns() {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	suffix := fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", r.mapping.IDColumn)
	if len(set) > 0 {
		suffix = fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", r.mapping.IDColumn, strings.Join(set, ", "))
	}
	sql, args, err := psql.Insert(r.mapping.Table).
		Columns(r.mapping.Columns...).
		Values(values...).
		Suffix(suffix).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("building upsert query: %w", err)
	}
	return sql, args, nil
}

// Delete removes the stored row. An absent key fails with NotFound.
func (r *Repository[T, K]) Delete(ctx context.Context, entity T) error {
	if err := repository.CheckEntity[T, K](entity); err != nil {
		return err
	}
	keyStr := errors.KeyString(entity.Key())

	exists, err := r.exists(ctx, entity.Key())
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFoundError(r.typeName, keyStr)
	}

	sql, args, err := psql.Delete(r.mapping.Table).Where(squirrel.Eq{r.mapping.IDColumn: entity.Key()}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	q, err := r.querier("delete", keyStr)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return dberrors.Translate("delete", r.typeName, keyStr, err)
	}
	if tag.RowsAffected() == 0 {
		return conflict("delete", r.typeName, keyStr, 0, 1)
	}
	r.log.Debug("deleted", "key", keyStr)
	return nil
}

func conflict(op, entityType, key string, got, want int64) error {
	return errors.NewRepositoryError(op, entityType, key,
		fmt.Errorf("%w: %d of %d rows affected", errors.ErrConcurrencyConflict, got, want))
}
