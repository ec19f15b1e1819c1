/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bunrepo

import (
	"context"

	"github.com/suparena/entityrepo/relational/dberrors"
	"github.com/suparena/entityrepo/repository"
	"github.com/uptrace/bun"
)

// CreateBulk inserts every entity in one statement.
func (r *Repository[T, K]) CreateBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "create bulk", entities, true, func(ctx context.Context, idb bun.IDB) error {
		_, err := idb.NewInsert().Model(&entities).Exec(ctx)
		return err
	})
}

// UpdateBulk updates every entity by primary key. A row that is missing fails
// the whole batch.
func (r *Repository[T, K]) UpdateBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "update bulk", entities, true, func(ctx context.Context, idb bun.IDB) error {
		for i := range entities {
			res, err := idb.NewUpdate().Model(&entities[i]).WherePK().Exec(ctx)
			if err != nil {
				return err
			}
			if err := checkAffected(res, 1, "update bulk", r.typeName, r.keyString(entities[i].Key())); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteBulk deletes every entity by primary key in one statement.
func (r *Repository[T, K]) DeleteBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "delete bulk", entities, false, func(ctx context.Context, idb bun.IDB) error {
		res, err := idb.NewDelete().Model(&entities).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return checkAffected(res, int64(len(entities)), "delete bulk", r.typeName, "")
	})
}

// bulk suspends per-write checks, validates the batch once when validate is
// set, then runs exec in the session transaction. Any failure is one
// Repository fault.
func (r *Repository[T, K]) bulk(ctx context.Context, op string, entities []T, validate bool, exec func(context.Context, bun.IDB) error) error {
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
