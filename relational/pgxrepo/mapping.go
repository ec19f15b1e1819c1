/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgxrepo

import (
	"context"
	"fmt"
	"slices"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/repository"
)

// DefaultIDColumn is the identifier column used when a Mapping leaves IDColumn empty.
const DefaultIDColumn = "id"

// Loader loads one navigation onto entity.
type Loader[T any] func(ctx context.Context, q Querier, entity *T) error

// Mapping declares how T is stored. Rows are scanned with pgxscan, so the
// `db` struct tags of T must name Columns.
type Mapping[T any] struct {
	Table    string
	IDColumn string
	// Columns lists every stored column, including the identifier.
	Columns []string
	// Values returns the column values of entity in Columns order.
	Values func(entity T) []any

	References  map[string]Loader[T]
	Collections map[string]Loader[T]
}

func (m *Mapping[T]) validate() error {
	if m.Table == "" {
		return errors.NewArgumentError("mapping.table", "must not be empty")
	}
	if m.IDColumn == "" {
		m.IDColumn = DefaultIDColumn
	}
	if len(m.Columns) == 0 {
		return errors.NewArgumentError("mapping.columns", "must not be empty")
	}
	if !slices.Contains(m.Columns, m.IDColumn) {
		return errors.NewArgumentError("mapping.columns", fmt.Sprintf("must include the identifier column %q", m.IDColumn))
	}
	if m.Values == nil {
		return errors.NewArgumentError("mapping.values", "must not be nil")
	}
	return nil
}

func (m *Mapping[T]) row(entity T) ([]any, error) {
	values := m.Values(entity)
	if len(values) != len(m.Columns) {
		return nil, fmt.Errorf("mapping for %s returned %d values for %d columns", m.Table, len(values), len(m.Columns))
	}
	return values, nil
}

// mutableColumns are the columns an upsert rewrites.
func (m *Mapping[T]) mutableColumns() []string {
	cols := make([]string, 0, len(m.Columns)-1)
	for _, c := range m.Columns {
		if c != m.IDColumn {
			cols = append(cols, c)
		}
	}
	return cols
}

func (m *Mapping[T]) checkInclude(path string) error {
	resolved, ok := query.ParsePath(path).Resolve()
	if !ok {
		return errors.NewArgumentError("includes", fmt.Sprintf("%q is not a navigation path", path))
	}
	if _, ok := m.References[resolved]; ok {
		return nil
	}
	if _, ok := m.Collections[resolved]; ok {
		return nil
	}
	return errors.NewArgumentError("includes", fmt.Sprintf("%s has no navigation %q", m.Table, resolved))
}

// navigator resolves navigations through the loaders of a Mapping.
type navigator[T any] struct {
	q       Querier
	mapping *Mapping[T]
}

var _ repository.Navigator[struct{}] = (*navigator[struct{}])(nil)

func (n *navigator[T]) LoadReference(ctx context.Context, entity *T, path string) error {
	if load, ok := n.mapping.References[path]; ok {
		return load(ctx, n.q, entity)
	}
	if err := n.mapping.checkInclude(path); err != nil {
		return err
	}
	return repository.ErrNotReference
}

func (n *navigator[T]) LoadCollection(ctx context.Context, entity *T, member string) error {
	load, ok := n.mapping.Collections[member]
	if !ok {
		return fmt.Errorf("no collection loader for %q", member)
	}
	return load(ctx, n.q, entity)
}
