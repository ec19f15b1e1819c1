/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityrepo

import (
	stderrors "errors"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/repository"
	"github.com/suparena/entityrepo/unitofwork"
)

// TypedCatalog holds named repositories for entity type T.
type TypedCatalog[T repository.Entity[K], K comparable] struct {
	mu    sync.RWMutex
	repos map[string]repository.Repository[T, K]
}

// NewTypedCatalog creates an empty TypedCatalog for T
func NewTypedCatalog[T repository.Entity[K], K comparable]() *TypedCatalog[T, K] {
	return &TypedCatalog[T, K]{
		repos: make(map[string]repository.Repository[T, K]),
	}
}

// Register adds repo under name
func (tc *TypedCatalog[T, K]) Register(name string, repo repository.Repository[T, K]) error {
	if name == "" {
		return errors.NewArgumentError("name", "must not be blank")
	}
	if repo == nil {
		return errors.NewArgumentError("repo", "must not be nil")
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if _, exists := tc.repos[name]; exists {
		return errors.NewAlreadyExistsError("repository", name)
	}
	tc.repos[name] = repo
	return nil
}

// Get retrieves a repository by name
func (tc *TypedCatalog[T, K]) Get(name string) (repository.Repository[T, K], error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	repo, exists := tc.repos[name]
	if !exists {
		return nil, errors.NewNotFoundError("repository", name)
	}
	return repo, nil
}

// Bulk retrieves a repository by name and checks it supports batches.
func (tc *TypedCatalog[T, K]) Bulk(name string) (repository.BulkCapableRepository[T, K], error) {
	repo, err := tc.Get(name)
	if err != nil {
		return nil, err
	}
	bulk, ok := repo.(repository.BulkCapableRepository[T, K])
	if !ok {
		return nil, errors.NewNotImplementedError("bulk operations", name)
	}
	return bulk, nil
}

// Remove deletes a repository by name
func (tc *TypedCatalog[T, K]) Remove(name string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if _, exists := tc.repos[name]; !exists {
		return errors.NewNotFoundError("repository", name)
	}
	delete(tc.repos, name)
	return nil
}

// List returns the registered names in order
func (tc *TypedCatalog[T, K]) List() []string {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	names := make([]string, 0, len(tc.repos))
	for name := range tc.repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog holds a TypedCatalog per entity type plus the sessions the
// repositories run on.
type Catalog struct {
	mu       sync.RWMutex
	typed    map[reflect.Type]any
	sessions map[string]unitofwork.Transactor
}

// NewCatalog creates an empty Catalog
func NewCatalog() *Catalog {
	return &Catalog{
		typed:    make(map[reflect.Type]any),
		sessions: make(map[string]unitofwork.Transactor),
	}
}

// For returns the TypedCatalog for T keyed by K, creating it if necessary.
func For[T repository.Entity[K], K comparable](c *Catalog) *TypedCatalog[T, K] {
	c.mu.Lock()
	defer c.mu.Unlock()

	typ := reflect.TypeOf((*TypedCatalog[T, K])(nil))
	if tc, exists := c.typed[typ]; exists {
		return tc.(*TypedCatalog[T, K])
	}
	tc := NewTypedCatalog[T, K]()
	c.typed[typ] = tc
	return tc
}

// Register is a convenience function to register a repository for T
func Register[T repository.Entity[K], K comparable](c *Catalog, name string, repo repository.Repository[T, K]) error {
	return For[T, K](c).Register(name, repo)
}

// Get is a convenience function to get a repository for T
func Get[T repository.Entity[K], K comparable](c *Catalog, name string) (repository.Repository[T, K], error) {
	return For[T, K](c).Get(name)
}

// Remove is a convenience function to remove a repository for T
func Remove[T repository.Entity[K], K comparable](c *Catalog, name string) error {
	return For[T, K](c).Remove(name)
}

// List is a convenience function to list the repositories for T
func List[T repository.Entity[K], K comparable](c *Catalog) []string {
	return For[T, K](c).List()
}

// RegisterSession adds a session under name. Close closes it.
func (c *Catalog) RegisterSession(name string, session unitofwork.Transactor) error {
	if name == "" {
		return errors.NewArgumentError("name", "must not be blank")
	}
	if session == nil {
		return errors.NewArgumentError("session", "must not be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.sessions[name]; exists {
		return errors.NewAlreadyExistsError("session", name)
	}
	c.sessions[name] = session
	return nil
}

// UnitOfWork starts a unit of work on the named session.
func (c *Catalog) UnitOfWork(name string, opts ...unitofwork.Option) (*unitofwork.UnitOfWork, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session, exists := c.sessions[name]
	if !exists {
		return nil, errors.NewNotFoundError("session", name)
	}
	return unitofwork.New(session, opts...), nil
}

// Close closes every registered session and forgets them.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, session := range c.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.sessions = make(map[string]unitofwork.Transactor)
	return stderrors.Join(errs...)
}
