/*
Package bunrepo implements the repository contracts on the bun ORM for
mysql, postgres and sqlite.

A Session wraps one *bun.DB and satisfies unitofwork.Transactor, so every
repository created on it joins the transaction a unit of work opens:

	session, err := bunrepo.Open(ctx, bunrepo.Config{Driver: "sqlite", DSN: "file::memory:?cache=shared"})
	users, err := bunrepo.New[User, int64](session)

	uow := unitofwork.New(session)
	err = uow.Run(ctx, func(ctx context.Context) error {
		return users.Create(ctx, User{ID: 1, Name: "ada"})
	})

Entities are addressed by primary key. A key accessor registered with
registry.RegisterKeyAccessor maps a compound key onto the primary-key
columns; single-column keys need none. Update and Delete check the key is
stored before writing and report a write that touches no row as a
concurrency conflict.
*/
package bunrepo
