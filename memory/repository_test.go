/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/unitofwork"
)

type order struct {
	ID       int    `validate:"gt=0"`
	Customer string `validate:"required"`
	Total    int
	Lines    []string
	Buyer    *string
}

func (o order) Key() int { return o.ID }

func newOrders(store *Store, opts ...Option[order]) *Repository[order, int] {
	return New[order, int](store, opts...)
}

func seed(t *testing.T, repo *Repository[order, int], orders ...order) {
	t.Helper()
	for _, o := range orders {
		require.NoError(t, repo.Create(context.Background(), o))
	}
}

func TestRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(NewStore())

	require.NoError(t, repo.Create(ctx, order{ID: 1, Customer: "ana", Total: 10}))
	err := repo.Create(ctx, order{ID: 1, Customer: "bob"})
	assert.True(t, errors.IsAlreadyExists(err))

	got, err := repo.RetrieveByKey(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ana", got.Customer)

	got.Customer = "mutated"
	again, err := repo.RetrieveByKey(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ana", again.Customer, "results are copies")

	require.NoError(t, repo.Update(ctx, order{ID: 1, Customer: "ana", Total: 20}))
	assert.True(t, errors.IsNotFound(repo.Update(ctx, order{ID: 2, Customer: "x"})))

	require.NoError(t, repo.Delete(ctx, order{ID: 1}))
	assert.True(t, errors.IsNotFound(repo.Delete(ctx, order{ID: 1})))

	ok, err := repo.Exists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := repo.RetrieveByKey(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_Guards(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(NewStore())

	_, err := repo.Exists(ctx, 0)
	assert.True(t, errors.IsInvalidArgument(err))

	err = repo.Create(ctx, order{ID: 3})
	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Customer", ve.Field)

	err = repo.CreateBulk(ctx, nil)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestRepository_Retrieve(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(NewStore())
	seed(t, repo,
		order{ID: 3, Customer: "c", Total: 30},
		order{ID: 1, Customer: "a", Total: 10},
		order{ID: 2, Customer: "b", Total: 20},
		order{ID: 4, Customer: "d", Total: 40},
	)
	byID := func(a, b order) bool { return a.ID < b.ID }

	all, err := repo.Retrieve(ctx, query.Query[order]{})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2, 4}, ids(all), "insertion order without sort")

	q := query.New[order]().
		Where(query.Match(func(o order) bool { return o.Total >= 20 })).
		OrderBy(query.Desc("id", byID)).
		Page(0, 2).
		Build()
	page, err := repo.Retrieve(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, ids(page))

	_, err = repo.Retrieve(ctx, query.Query[order]{Paging: &query.Paging{Size: 2}})
	assert.True(t, errors.IsInvalidArgument(err), "paging without sort")

	n, err := repo.Count(ctx, query.Match(func(o order) bool { return o.Total > 15 }))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRepository_Includes(t *testing.T) {
	ctx := context.Background()
	buyer := "ana"
	repo := newOrders(NewStore(),
		WithReference[order]("Buyer", func(_ context.Context, o *order) error {
			o.Buyer = &buyer
			return nil
		}),
		WithCollection[order]("Lines", func(_ context.Context, o *order) error {
			o.Lines = []string{"l1", "l2"}
			return nil
		}),
	)
	seed(t, repo, order{ID: 1, Customer: "a"})

	got, err := repo.RetrieveByKey(ctx, 1, "Buyer", "Lines")
	require.NoError(t, err)
	require.NotNil(t, got.Buyer)
	assert.Equal(t, "ana", *got.Buyer)
	assert.Equal(t, []string{"l1", "l2"}, got.Lines)

	_, err = repo.RetrieveByKey(ctx, 1, "Warehouse")
	assert.True(t, errors.IsInvalidArgument(err))

	all, err := repo.Retrieve(ctx, query.New[order]().Include("Lines").Build())
	require.NoError(t, err)
	assert.Len(t, all[0].Lines, 2)
}

func TestRepository_Bulk(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(NewStore())
	seed(t, repo, order{ID: 1, Customer: "a"})

	err := repo.CreateBulk(ctx, []order{{ID: 2, Customer: "b"}, {ID: 1, Customer: "dup"}})
	require.True(t, errors.IsRepositoryError(err))
	n, _ := repo.Count(ctx, nil)
	assert.Equal(t, 1, n, "failed batch writes nothing")

	err = repo.CreateBulk(ctx, []order{{ID: 2, Customer: "b"}, {ID: 3}})
	assert.True(t, errors.IsRepositoryError(err))
	assert.True(t, errors.IsValidationError(err))
	assert.True(t, repo.validator.Automatic(), "validation restored after bulk")

	require.NoError(t, repo.CreateBulk(ctx, []order{{ID: 2, Customer: "b"}, {ID: 3, Customer: "c"}}))
	require.NoError(t, repo.UpdateBulk(ctx, []order{{ID: 2, Customer: "bb"}, {ID: 3, Customer: "cc"}}))

	err = repo.DeleteBulk(ctx, []order{{ID: 2}, {ID: 9}})
	assert.True(t, errors.IsNotFound(err))
	require.NoError(t, repo.DeleteBulk(ctx, []order{{ID: 2}, {ID: 3}}))

	n, _ = repo.Count(ctx, nil)
	assert.Equal(t, 1, n)
}

func TestRepository_InjectedErrors(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("boom")
	repo := newOrders(NewStore()).WithCreateError(boom).WithDeleteError(boom)

	assert.ErrorIs(t, repo.Create(ctx, order{ID: 1, Customer: "a"}), boom)
	assert.ErrorIs(t, repo.Delete(ctx, order{ID: 1}), boom)
	err := repo.CreateBulk(ctx, []order{{ID: 1, Customer: "a"}})
	assert.ErrorIs(t, err, boom)
	assert.True(t, errors.IsRepositoryError(err), "a failed batch is one Repository fault")

	err = repo.DeleteBulk(ctx, []order{{ID: 1}})
	var re *errors.RepositoryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "delete bulk", re.Op)
	assert.ErrorIs(t, err, boom)
}

func TestStore_UnitOfWork(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := newOrders(store)
	seed(t, repo, order{ID: 1, Customer: "a"})
	uow := unitofwork.New(store)

	t.Run("RollbackRestores", func(t *testing.T) {
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, repo.Create(ctx, order{ID: 2, Customer: "b"}))
		require.NoError(t, repo.Delete(ctx, order{ID: 1}))
		require.NoError(t, uow.Rollback(ctx))

		all, err := repo.Retrieve(ctx, query.Query[order]{})
		require.NoError(t, err)
		assert.Equal(t, []int{1}, ids(all))
	})

	t.Run("NestedCommit", func(t *testing.T) {
		err := uow.Run(ctx, func(ctx context.Context) error {
			return uow.Run(ctx, func(ctx context.Context) error {
				return repo.Create(ctx, order{ID: 5, Customer: "e"})
			})
		})
		require.NoError(t, err)
		assert.False(t, store.InTx())

		ok, err := repo.Exists(ctx, 5)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CommitWithoutBegin", func(t *testing.T) {
		assert.ErrorIs(t, store.CommitTx(ctx), sql.ErrTxDone)
	})

	t.Run("CloseDisposes", func(t *testing.T) {
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, repo.Create(ctx, order{ID: 6, Customer: "f"}))
		require.NoError(t, uow.Close())

		_, err := repo.Exists(ctx, 6)
		assert.True(t, errors.IsRepositoryError(err))
		assert.ErrorIs(t, err, errors.ErrDisposed)
		assert.ErrorIs(t, uow.Begin(ctx), errors.ErrDisposed)
	})
}

func ids(orders []order) []int {
	out := make([]int, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
