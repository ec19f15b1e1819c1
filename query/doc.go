/*
Package query defines the backend-independent query description used by
every repository: a filter, an optional page, a sort and a list of eager-load
paths.

Composition order is fixed and reproduced by every backend:

 1. start from the full set
 2. apply the filter
 3. apply the sort (required whenever a page size is set)
 4. skip Index*Size entities and take Size
 5. eager load each include in caller order
 6. materialize into a fresh slice

Filters and sorts carry two renderings. Relational backends use the squirrel
condition and the ORDER BY columns; backends that cannot evaluate predicates
server side use the Go functions:

	q := query.New[Order]().
	    Where(query.Where(sq.Eq{"status": "open"}, func(o Order) bool { return o.Status == "open" })).
	    OrderBy(query.Asc("id", func(a, b Order) bool { return a.ID < b.ID })).
	    Page(1, 20).
	    Include("Customer", "Lines").
	    Build()
*/
package query
