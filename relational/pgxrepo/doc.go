/*
Package pgxrepo implements the repository contracts on pgx, building SQL with
squirrel and scanning rows with scany.

Each entity type is described by a Mapping naming its table, its columns and
the identifier column, which defaults to "id":

	users, err := pgxrepo.New[User, string](session, pgxrepo.Mapping[User]{
		Table:   "users",
		Columns: []string{"id", "email"},
		Values:  func(u User) []any { return []any{u.ID, u.Email} },
	})

Update is an upsert guarded by an existence check. CreateBulk uses COPY.
Navigations are served by the loaders registered in the Mapping.
*/
package pgxrepo
