/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/query"
)

func collect[T any](ch <-chan StreamResult[T]) []StreamResult[T] {
	var out []StreamResult[T]
	for res := range ch {
		out = append(out, res)
	}
	return out
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	repo := newNotes(t, api)
	for i, body := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, repo.Create(ctx, note{Owner: "ana", ID: body, Body: body, Rank: i}))
	}

	t.Run("AllItemsInTableOrder", func(t *testing.T) {
		var pages []StreamProgress
		results := collect(repo.Stream(ctx, nil, WithPageSize(2), WithProgressHandler(func(p StreamProgress) {
			pages = append(pages, p)
		})))
		require.Len(t, results, 5)
		for i, res := range results {
			require.NoError(t, res.Error)
			assert.Equal(t, int64(i), res.Meta.Index)
			assert.False(t, res.Meta.Timestamp.IsZero())
		}
		assert.Equal(t, "e", results[4].Item.Body)
		assert.Equal(t, 3, results[4].Meta.PageNumber)
		require.Len(t, pages, 3)
		assert.Equal(t, int64(5), pages[2].ItemsProcessed)
	})

	t.Run("Filtered", func(t *testing.T) {
		results := collect(repo.Stream(ctx, query.Match(func(n note) bool { return n.Rank >= 3 })))
		require.Len(t, results, 2)
		assert.Equal(t, "d", results[0].Item.Body)
	})

	t.Run("FailureEndsStream", func(t *testing.T) {
		api.fail = serviceUnavailable()
		results := collect(repo.Stream(ctx, nil))
		require.Len(t, results, 1)
		assert.True(t, errors.IsRepositoryError(results[0].Error))
	})

	t.Run("CancelStops", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		ch := repo.Stream(cctx, nil, WithBufferSize(0), WithPageSize(1))
		first := <-ch
		require.NoError(t, first.Error)
		cancel()
		for range ch {
		}
	})
}
