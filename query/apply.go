/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"sort"

	"github.com/suparena/entityrepo/errors"
)

// Apply runs the in-memory part of the composition over items: filter, then
// stable sort, then skip/take. Includes are left to the backend. It does not
// re-check the caller contract; call Validate first.
func Apply[T any](items []T, q Query[T]) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := q.Filter.Matches(item)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}

	if q.Sort != nil {
		if q.Sort.Less == nil {
			return nil, errors.NewArgumentError("sort", "no comparator; this backend sorts in memory")
		}
		less := q.Sort.Less
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}

	return Page(out, q.Paging), nil
}

// Page applies skip/take to items. A nil or zero-size paging returns items as is.
func Page[T any](items []T, p *Paging) []T {
	if !p.Enabled() {
		return items
	}
	skip := p.Skip()
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if take := p.Take(); take < end-skip {
		end = skip + take
	}
	return items[skip:end]
}
