/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/suparena/entityrepo/errors"
)

// Query describes which subset of entities to read, in what order, and with
// which related data. The zero value selects every entity in backend order.
type Query[T any] struct {
	// Filter restricts the result set. Nil selects everything.
	Filter *Filter[T]
	// Paging selects one page of the sorted result. Requires Sort when Size > 0.
	Paging *Paging
	// Sort orders the result before paging.
	Sort *Sort[T]
	// Includes lists navigation paths to eager load, applied in order.
	Includes []string
}

// Filter is a predicate over T in two renderings. Relational backends render
// Cond into the WHERE clause; backends that cannot filter server side evaluate
// Match against every materialized entity.
type Filter[T any] struct {
	Cond  sq.Sqlizer
	Match func(T) bool
}

// Where builds a filter usable by every backend.
func Where[T any](cond sq.Sqlizer, match func(T) bool) *Filter[T] {
	return &Filter[T]{Cond: cond, Match: match}
}

// SQL builds a filter only relational backends can evaluate.
func SQL[T any](cond sq.Sqlizer) *Filter[T] {
	return &Filter[T]{Cond: cond}
}

// Match builds a filter only in-memory backends can evaluate.
func Match[T any](match func(T) bool) *Filter[T] {
	return &Filter[T]{Match: match}
}

// ToSQL renders the relational half of the filter with '?' placeholders.
func (f *Filter[T]) ToSQL() (string, []any, error) {
	if f == nil || f.Cond == nil {
		return "", nil, errors.NewArgumentError("filter", "no SQL condition; this backend cannot evaluate predicates in memory")
	}
	return f.Cond.ToSql()
}

// Matches evaluates the in-memory half of the filter.
func (f *Filter[T]) Matches(entity T) (bool, error) {
	if f == nil {
		return true, nil
	}
	if f.Match == nil {
		return false, errors.NewArgumentError("filter", "no match predicate; this backend filters in memory")
	}
	return f.Match(entity), nil
}

// Paging selects page Index (0-based) of Size entities.
type Paging struct {
	Index int
	Size  int
}

// Skip is the number of entities before the page. It saturates at
// math.MaxInt instead of overflowing.
func (p *Paging) Skip() int {
	if p == nil || p.Size <= 0 || p.Index <= 0 {
		return 0
	}
	if p.Index > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Index * p.Size
}

// Take is the page size, or 0 when paging is off.
func (p *Paging) Take() int {
	if p == nil || p.Size <= 0 {
		return 0
	}
	return p.Size
}

// Enabled reports whether skip/take applies.
func (p *Paging) Enabled() bool {
	return p != nil && p.Size > 0
}

// Direction of a sort column
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// Order is one column of a SQL ORDER BY.
type Order struct {
	Column    string
	Direction Direction
}

// Sort is an ordering in two renderings: Orders for SQL backends and Less for
// in-memory backends.
type Sort[T any] struct {
	Orders []Order
	Less   func(a, b T) bool
}

// Asc sorts ascending on column; less is the in-memory equivalent.
func Asc[T any](column string, less func(a, b T) bool) *Sort[T] {
	return &Sort[T]{Orders: []Order{{Column: column, Direction: Ascending}}, Less: less}
}

// Desc sorts descending on column; less must order ascending and is reversed.
func Desc[T any](column string, less func(a, b T) bool) *Sort[T] {
	s := &Sort[T]{Orders: []Order{{Column: column, Direction: Descending}}}
	if less != nil {
		s.Less = func(a, b T) bool { return less(b, a) }
	}
	return s
}

// Then appends a tie-breaking column.
func (s *Sort[T]) Then(next *Sort[T]) *Sort[T] {
	if next == nil {
		return s
	}
	combined := &Sort[T]{Orders: append(append([]Order{}, s.Orders...), next.Orders...)}
	// in-memory ordering is only defined when every column has a comparator
	if s.Less != nil && next.Less != nil {
		first, second := s.Less, next.Less
		combined.Less = func(a, b T) bool {
			if first(a, b) {
				return true
			}
			if first(b, a) {
				return false
			}
			return second(a, b)
		}
	}
	return combined
}

// OrderByClauses renders Orders for squirrel's OrderBy.
func (s *Sort[T]) OrderByClauses() []string {
	if s == nil {
		return nil
	}
	clauses := make([]string, 0, len(s.Orders))
	for _, o := range s.Orders {
		clauses = append(clauses, fmt.Sprintf("%s %s", o.Column, o.Direction))
	}
	return clauses
}

// SQLOrder renders the sort for SQL backends. A sort carrying only an
// in-memory comparator cannot order rows server side and is rejected, so
// paging never runs over an unspecified order.
func (q Query[T]) SQLOrder() ([]string, error) {
	if q.Sort == nil {
		return nil, nil
	}
	if len(q.Sort.Orders) == 0 {
		return nil, errors.NewArgumentError("sort", "no SQL ordering; this backend sorts server side")
	}
	return q.Sort.OrderByClauses(), nil
}

// Validate checks the caller contract of the query.
func (q Query[T]) Validate() error {
	if q.Paging != nil {
		if q.Paging.Index < 0 {
			return errors.NewArgumentError("paging.index", "must not be negative")
		}
		if q.Paging.Size < 0 {
			return errors.NewArgumentError("paging.size", "must not be negative")
		}
		if q.Paging.Size > 0 && q.Sort == nil {
			return errors.NewArgumentError("sort", "is required when paging is set")
		}
		if q.Paging.Size > 0 && q.Paging.Index > math.MaxInt/q.Paging.Size {
			return errors.NewArgumentError("paging.index", fmt.Sprintf("skips past the addressable range for page size %d", q.Paging.Size))
		}
	}
	for i, include := range q.Includes {
		if _, ok := ParsePath(include).Resolve(); !ok {
			return errors.NewArgumentError(fmt.Sprintf("includes[%d]", i), fmt.Sprintf("%q is not a navigation path", include))
		}
	}
	return nil
}

// Builder composes a Query fluently.
type Builder[T any] struct {
	q Query[T]
}

// New starts a query over every T.
func New[T any]() *Builder[T] {
	return &Builder[T]{}
}

// Where sets the filter
func (b *Builder[T]) Where(f *Filter[T]) *Builder[T] {
	b.q.Filter = f
	return b
}

// OrderBy sets the sort
func (b *Builder[T]) OrderBy(s *Sort[T]) *Builder[T] {
	b.q.Sort = s
	return b
}

// Page selects page index of size entities
func (b *Builder[T]) Page(index, size int) *Builder[T] {
	b.q.Paging = &Paging{Index: index, Size: size}
	return b
}

// Include appends navigation paths
func (b *Builder[T]) Include(paths ...string) *Builder[T] {
	for _, p := range paths {
		b.q.Includes = append(b.q.Includes, strings.TrimSpace(p))
	}
	return b
}

// TryInclude resolves p and appends it. It reports false, leaving the query
// untouched, when p does not resolve.
func (b *Builder[T]) TryInclude(p Path) bool {
	resolved, ok := p.Resolve()
	if !ok {
		return false
	}
	b.q.Includes = append(b.q.Includes, resolved)
	return true
}

// Build returns the composed query
func (b *Builder[T]) Build() Query[T] {
	q := b.q
	q.Includes = append([]string(nil), b.q.Includes...)
	return q
}
