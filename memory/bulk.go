/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/repository"
)

// CreateBulk stores every entity, or none when any key is taken or repeated.
func (r *Repository[T, K]) CreateBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "create bulk", entities, true, r.createErr, func(t *table) error {
		seen := make(map[K]struct{}, len(entities))
		for _, e := range entities {
			key := e.Key()
			_, dup := seen[key]
			if _, ok := t.rows[key]; ok || dup {
				return errors.NewAlreadyExistsError(r.typeName, errors.KeyString(key))
			}
			seen[key] = struct{}{}
		}
		for _, e := range entities {
			t.put(e.Key(), e)
		}
		return nil
	})
}

// UpdateBulk replaces every entity, or none when any key is absent.
func (r *Repository[T, K]) UpdateBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "update bulk", entities, true, r.updateErr, func(t *table) error {
		if err := r.requireAll(t, entities); err != nil {
			return err
		}
		for _, e := range entities {
			t.put(e.Key(), e)
		}
		return nil
	})
}

// DeleteBulk removes every entity, or none when any key is absent.
func (r *Repository[T, K]) DeleteBulk(ctx context.Context, entities []T) error {
	return r.bulk(ctx, "delete bulk", entities, false, r.deleteErr, func(t *table) error {
		if err := r.requireAll(t, entities); err != nil {
			return err
		}
		for _, e := range entities {
			t.remove(e.Key())
		}
		return nil
	})
}

func (r *Repository[T, K]) requireAll(t *table, entities []T) error {
	for _, e := range entities {
		if _, ok := t.rows[e.Key()]; !ok {
			return errors.NewNotFoundError(r.typeName, errors.KeyString(e.Key()))
		}
	}
	return nil
}

// bulk validates the batch once with per-write checks suspended, then applies
// exec under one store lock. Any failure is one Repository fault.
func (r *Repository[T, K]) bulk(ctx context.Context, op string, entities []T, validate bool, injected error, exec func(*table) error) error {
	if err := repository.CheckBatch[T, K](entities); err != nil {
		return err
	}
	if injected != nil {
		if errors.IsRepositoryError(injected) {
			return injected
		}
		return errors.NewRepositoryError(op, r.typeName, "", injected)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	restore := r.validator.Suspend()
	defer restore()

	if validate {
		if err := repository.CheckAll[T, K](r.validator, entities); err != nil {
			return errors.NewRepositoryError(op, r.typeName, "", err)
		}
	}
	if err := r.store.write(r.typeName, exec); err != nil {
		return errors.NewRepositoryError(op, r.typeName, "", err)
	}
	r.log.Debug("bulk write", "op", op, "count", len(entities))
	return nil
}
