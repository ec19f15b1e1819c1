/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/query"
)

type note struct {
	Owner string `dynamodbav:"owner" validate:"required"`
	ID    string `dynamodbav:"id"`
	Body  string `dynamodbav:"body" validate:"required"`
	Rank  int    `dynamodbav:"rank"`
}

func (n note) Key() Key { return Key{Partition: n.Owner, Row: n.ID} }

type tag struct {
	Name string `dynamodbav:"name"`
}

func (t tag) Key() Key { return Key{Partition: "tags", Row: t.Name} }

// tickingClock advances one second per reading so write order is observable.
func tickingClock() func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newNotes(t *testing.T, api *fakeAPI) *Repository[note] {
	t.Helper()
	repo, err := NewWithClient[note](context.Background(), api, "entities", WithClock(tickingClock()))
	require.NoError(t, err)
	return repo
}

func serviceUnavailable() error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}},
		Err:      stderrors.New("service unavailable"),
	}
}

func TestNewWithClient_EnsuresTable(t *testing.T) {
	api := newFakeAPI()
	ctx := context.Background()

	_, err := NewWithClient[note](ctx, api, "entities")
	require.NoError(t, err)
	assert.Equal(t, 1, api.creates)

	_, err = NewWithClient[note](ctx, api, "entities")
	require.NoError(t, err)
	assert.Equal(t, 1, api.creates, "existing table is reused")

	_, err = NewWithClient[note](ctx, api, "")
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestNew_RejectsMalformedConnectionString(t *testing.T) {
	_, err := New[note](context.Background(), "Region=us-east-1;Bogus", "entities")
	reason, ok := errors.ConfigReason(err)
	require.True(t, ok)
	assert.Equal(t, errors.MalformedConnectionString, reason)
}

func TestRepository_CreateAndRetrieveByKey(t *testing.T) {
	ctx := context.Background()
	repo := newNotes(t, newFakeAPI())

	n := note{Owner: "ana", ID: "1", Body: "hello", Rank: 3}
	require.NoError(t, repo.Create(ctx, n))

	got, err := repo.RetrieveByKey(ctx, n.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n, *got)

	missing, err := repo.RetrieveByKey(ctx, Key{Partition: "ana", Row: "404"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, n)
	assert.True(t, errors.IsAlreadyExists(err), "got %v", err)
}

func TestRepository_KeyGuards(t *testing.T) {
	ctx := context.Background()
	repo := newNotes(t, newFakeAPI())

	_, err := repo.Exists(ctx, Key{Row: "1"})
	var argErr *errors.ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "key.partition", argErr.Name)

	_, err = repo.RetrieveByKey(ctx, Key{Partition: "ana"})
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "key.row", argErr.Name)

	err = repo.Create(ctx, note{Owner: "ana", Body: "x"})
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestRepository_ValidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	repo := newNotes(t, api)

	err := repo.Create(ctx, note{Owner: "ana", ID: "1"})
	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Body", ve.Field)
	assert.Empty(t, api.items)

	unchecked, err := NewWithClient[note](ctx, api, "entities", WithValidator(nil))
	require.NoError(t, err)
	assert.NoError(t, unchecked.Create(ctx, note{Owner: "ana", ID: "1"}))
}

func TestRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newNotes(t, newFakeAPI())
	n := note{Owner: "ana", ID: "1", Body: "v1"}

	err := repo.Update(ctx, n)
	assert.True(t, errors.IsNotFound(err), "update of absent key: %v", err)
	err = repo.Delete(ctx, n)
	assert.True(t, errors.IsNotFound(err), "delete of absent key: %v", err)

	require.NoError(t, repo.Create(ctx, n))
	n.Body = "v2"
	require.NoError(t, repo.Update(ctx, n))

	got, err := repo.RetrieveByKey(ctx, n.Key())
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Body)

	require.NoError(t, repo.Delete(ctx, n))
	ok, err := repo.Exists(ctx, n.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_RetrieveScansAcrossPages(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	repo := newNotes(t, api)
	tags, err := NewWithClient[tag](ctx, api, "entities")
	require.NoError(t, err)

	for i, body := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, repo.Create(ctx, note{Owner: "ana", ID: body, Body: body, Rank: i}))
	}
	require.NoError(t, tags.Create(ctx, tag{Name: "go"}))

	t.Run("DefaultOrderIsNewestFirst", func(t *testing.T) {
		all, err := repo.Retrieve(ctx, query.Query[note]{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, []string{"e", "d", "c", "b", "a"}, bodies(all))
	})

	t.Run("FilterSortPage", func(t *testing.T) {
		q := query.New[note]().
			Where(query.Match(func(n note) bool { return n.Rank > 0 })).
			OrderBy(query.Asc("rank", func(a, b note) bool { return a.Rank < b.Rank })).
			Page(1, 2).
			Build()
		page, err := repo.Retrieve(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "e"}, bodies(page))
	})

	t.Run("PageBeyondEndIsEmpty", func(t *testing.T) {
		q := query.New[note]().
			OrderBy(query.Asc("rank", func(a, b note) bool { return a.Rank < b.Rank })).
			Page(10, 2).
			Build()
		page, err := repo.Retrieve(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("Count", func(t *testing.T) {
		n, err := repo.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = repo.Count(ctx, query.Match(func(n note) bool { return n.Rank%2 == 0 }))
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = tags.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("SQLOnlyFilterIsRejected", func(t *testing.T) {
		_, err := repo.Count(ctx, &query.Filter[note]{})
		assert.True(t, errors.IsInvalidArgument(err))
	})
}

func TestRepository_UnsupportedOperations(t *testing.T) {
	ctx := context.Background()
	repo := newNotes(t, newFakeAPI())
	batch := []note{{Owner: "ana", ID: "1", Body: "x"}}

	assert.True(t, errors.IsNotImplemented(repo.CreateBulk(ctx, batch)))
	assert.True(t, errors.IsNotImplemented(repo.UpdateBulk(ctx, batch)))
	assert.True(t, errors.IsNotImplemented(repo.DeleteBulk(ctx, batch)))

	_, err := repo.RetrieveByKey(ctx, batch[0].Key(), "Owner")
	assert.True(t, errors.IsNotImplemented(err))
	_, err = repo.Retrieve(ctx, query.Query[note]{Includes: []string{"Owner"}})
	assert.True(t, errors.IsNotImplemented(err))
}

func TestRepository_TranslatesServiceFaults(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	repo := newNotes(t, api)
	n := note{Owner: "ana", ID: "1", Body: "x"}

	api.fail = serviceUnavailable()
	err := repo.Create(ctx, n)
	var re *errors.RepositoryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusServiceUnavailable, re.StatusCode)
	assert.Equal(t, "ana|1", re.Key)

	api.fail = &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusConflict}},
		Err:      stderrors.New("conflict"),
	}
	assert.True(t, errors.IsAlreadyExists(repo.Create(ctx, n)))

	api.fail = serviceUnavailable()
	_, err = repo.Retrieve(ctx, query.Query[note]{})
	assert.True(t, errors.IsRepositoryError(err))

	api.fail = context.Canceled
	_, err = repo.Exists(ctx, n.Key())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.IsRepositoryError(err))
}

func TestRepository_MissingTableReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	repo := newNotes(t, api)
	api.exists = false

	ok, err := repo.Exists(ctx, Key{Partition: "ana", Row: "1"})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.RetrieveByKey(ctx, Key{Partition: "ana", Row: "1"})
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func bodies(notes []note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Body
	}
	return out
}

func TestRepository_KeyOperationsIgnoreOtherTypes(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	notes := newNotes(t, api)
	tags, err := NewWithClient[tag](ctx, api, "entities")
	require.NoError(t, err)

	// a note stored under the key a tag would use
	require.NoError(t, notes.Create(ctx, note{Owner: "tags", ID: "go", Body: "shared key"}))
	key := tag{Name: "go"}.Key()

	exists, err := tags.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := tags.RetrieveByKey(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, errors.IsNotFound(tags.Update(ctx, tag{Name: "go"})))
	assert.True(t, errors.IsNotFound(tags.Delete(ctx, tag{Name: "go"})))

	err = tags.Create(ctx, tag{Name: "go"})
	assert.True(t, errors.IsAlreadyExists(err), "a key holds one item whatever its type")

	stored, err := notes.RetrieveByKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "shared key", stored.Body, "the note is left untouched")
}

func TestRepository_RejectsMalformedTimestamp(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	repo := newNotes(t, api)
	require.NoError(t, repo.Create(ctx, note{Owner: "ana", ID: "1", Body: "hello"}))

	api.items["ana|1"][AttrTimestamp] = &types.AttributeValueMemberS{Value: "yesterday"}

	_, err := repo.RetrieveByKey(ctx, Key{Partition: "ana", Row: "1"})
	assert.True(t, errors.IsRepositoryError(err))
	assert.ErrorContains(t, err, AttrTimestamp)

	_, err = repo.Retrieve(ctx, query.Query[note]{})
	assert.True(t, errors.IsRepositoryError(err))
}
