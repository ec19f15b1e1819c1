/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgxrepo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/relational/dberrors"
	"github.com/suparena/entityrepo/repository"
)

// CreateBulk copies every entity into the table with the COPY protocol.
func (r *Repository[T, K]) CreateBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "create bulk", entities, true, func(ctx context.Context, q Querier) error {
		n, err := q.CopyFrom(ctx, pgx.Identifier{r.mapping.Table}, r.mapping.Columns,
			pgx.CopyFromSlice(len(entities), func(i int) ([]any, error) {
				return r.mapping.row(entities[i])
			}))
		if err != nil {
			return err
		}
		if n != int64(len(entities)) {
			return conflict("create bulk", r.typeName, "", n, int64(len(entities)))
		}
		return nil
	})
}

// UpdateBulk updates every entity by identifier. A row that is missing fails
// the whole batch.
func (r *Repository[T, K]) UpdateBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "update bulk", entities, true, func(ctx context.Context, q Querier) error {
		for _, e := range entities {
			values, err := r.mapping.row(e)
			if err != nil {
				return err
			}
			set := make(map[string]any, len(values))
			for i, c := range r.mapping.Columns {
				if c != r.mapping.IDColumn {
					set[c] = values[i]
				}
			}
			sql, args, err := psql.Update(r.mapping.Table).
				SetMap(set).
				Where(squirrel.Eq{r.mapping.IDColumn: e.Key()}).
				ToSql()
			if err != nil {
				return fmt.Errorf("building update query: %w", err)
			}
			tag, err := q.Exec(ctx, sql, args...)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return conflict("update bulk", r.typeName, errors.KeyString(e.Key()), 0, 1)
			}
		}
		return nil
	})
}

// DeleteBulk deletes every entity by identifier in one statement.
func (r *Repository[T, K]) DeleteBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "delete bulk", entities, false, func(ctx context.Context, q Querier) error {
		keys := make([]K, len(entities))
		for i, e := range entities {
			keys[i] = e.Key()
		}
		sql, args, err := psql.Delete(r.mapping.Table).Where(squirrel.Eq{r.mapping.IDColumn: keys}).ToSql()
		if err != nil {
			return fmt.Errorf("building delete query: %w", err)
		}
		tag, err := q.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != int64(len(entities)) {
			return conflict("delete bulk", r.typeName, "", tag.RowsAffected(), int64(len(entities)))
		}
		return nil
	})
}

// bulk suspends per-write checks, validates the batch once when validate is
// set, then runs exec in the session transaction. Any failure is one
// Repository fault.
func (r *Repository[T, K]) bulk(ctx context.Context, op string, entities []T, validate bool, exec func(context.Context, Querier) error) error {
	if err := repository.CheckBatch[T, K](entities); err != nil {
		return err
	}

	restore := r.session.validator.Suspend()
	defer restore()

	if validate {
		if err := repository.CheckAll[T, K](r.session.validator, entities); err != nil {
			return dberrors.Fault(op, r.typeName, "", err)
		}
	}
	if err := r.session.InTx(ctx, exec); err != nil {
		return dberrors.Fault(op, r.typeName, "", dberrors.Translate(op, r.typeName, "", err))
	}
	r.log.Debug("bulk write", "op", op, "count", len(entities))
	return nil
}
