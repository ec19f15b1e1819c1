/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/query"
)

// ErrNotReference is returned by Navigator.LoadReference when the navigation
// is collection-valued.
var ErrNotReference = stderrors.New("navigation is not a single reference")

// Navigator loads related data onto an already materialized entity.
type Navigator[T any] interface {
	LoadReference(ctx context.Context, entity *T, path string) error
	LoadCollection(ctx context.Context, entity *T, member string) error
}

// LoadIncludes eager loads every path onto entity in order. Each path is first
// loaded as a single reference; when the navigation turns out to be a
// collection it is retried as a collection load on the resolved member. A
// failed retry is reported as a lazy-load Repository fault naming key.
func LoadIncludes[T any, K comparable](ctx context.Context, nav Navigator[T], entity *T, key K, paths []string) error {
	for _, path := range paths {
		resolved, ok := query.ParsePath(path).Resolve()
		if !ok {
			return errors.NewArgumentError("includes", fmt.Sprintf("%q is not a navigation path", path))
		}

		err := nav.LoadReference(ctx, entity, resolved)
		if err == nil {
			continue
		}
		if !stderrors.Is(err, ErrNotReference) {
			return err
		}

		if cerr := nav.LoadCollection(ctx, entity, resolved); cerr != nil {
			return errors.NewRepositoryError(
				fmt.Sprintf("lazy load of %q", resolved), TypeName[T](), errors.KeyString(key), cerr)
		}
	}
	return nil
}
