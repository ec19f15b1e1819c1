/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"

	"github.com/suparena/entityrepo/query"
)

// Entity is any type with a unique identifier of a comparable key type.
type Entity[K comparable] interface {
	Key() K
}

// ReadOnlyRepository reads entities of type T keyed by K.
type ReadOnlyRepository[T Entity[K], K comparable] interface {
	// Count returns the number of entities matching filter, or all entities when filter is nil.
	Count(ctx context.Context, filter *query.Filter[T]) (int, error)

	// Exists reports whether an entity with key is persisted.
	Exists(ctx context.Context, key K) (bool, error)

	// Retrieve materializes the entities selected by q.
	Retrieve(ctx context.Context, q query.Query[T]) ([]T, error)

	// RetrieveByKey returns the entity stored under key, or nil when absent.
	RetrieveByKey(ctx context.Context, key K, includes ...string) (*T, error)
}

// Repository adds single-entity writes to ReadOnlyRepository.
type Repository[T Entity[K], K comparable] interface {
	ReadOnlyRepository[T, K]

	// Create persists entity. It fails with AlreadyExists when the key is taken.
	Create(ctx context.Context, entity T) error

	// Update replaces the stored entity. It fails with NotFound when the key is absent.
	Update(ctx context.Context, entity T) error

	// Delete removes the stored entity. It fails with NotFound when the key is absent.
	Delete(ctx context.Context, entity T) error
}

// BulkRepository writes batches as a whole: either every entity is written or
// one Repository fault is returned.
type BulkRepository[T Entity[K], K comparable] interface {
	CreateBulk(ctx context.Context, entities []T) error
	UpdateBulk(ctx context.Context, entities []T) error
	DeleteBulk(ctx context.Context, entities []T) error
}

// BulkCapableRepository is a Repository that also supports batches.
type BulkCapableRepository[T Entity[K], K comparable] interface {
	Repository[T, K]
	BulkRepository[T, K]
}
