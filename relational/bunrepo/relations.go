/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bunrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/query"
	"github.com/suparena/entityrepo/repository"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// resolveNavigation walks path through the relations declared on table. It
// reports whether any step is collection-valued.
func resolveNavigation(table *schema.Table, path string) (toMany bool, err error) {
	resolved, ok := query.ParsePath(path).Resolve()
	if !ok {
		return false, errors.NewArgumentError("includes", fmt.Sprintf("%q is not a navigation path", path))
	}
	current := table
	for _, name := range strings.Split(resolved, ".") {
		rel, ok := current.Relations[name]
		if !ok {
			return false, errors.NewArgumentError("includes",
				fmt.Sprintf("%s has no relation %q", current.TypeName, name))
		}
		switch rel.Type {
		case schema.HasManyRelation, schema.ManyToManyRelation:
			toMany = true
		}
		current = rel.JoinTable
	}
	return toMany, nil
}

// navigator loads relations onto an entity addressed by its primary key.
type navigator[T any] struct {
	idb   bun.IDB
	table *schema.Table
}

var _ repository.Navigator[struct{}] = (*navigator[struct{}])(nil)

func (n *navigator[T]) LoadReference(ctx context.Context, entity *T, path string) error {
	toMany, err := resolveNavigation(n.table, path)
	if err != nil {
		return err
	}
	if toMany {
		return repository.ErrNotReference
	}
	return n.load(ctx, entity, path)
}

func (n *navigator[T]) LoadCollection(ctx context.Context, entity *T, member string) error {
	return n.load(ctx, entity, member)
}

func (n *navigator[T]) load(ctx context.Context, entity *T, path string) error {
	return n.idb.NewSelect().Model(entity).WherePK().Relation(path).Scan(ctx)
}
