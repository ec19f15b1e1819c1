/*
Package entityrepo provides backend-agnostic repositories for Go applications:
one generic contract for create, retrieve, update, delete, existence and
count, driven by a composable query, with interchangeable backends.

Backends:
  - relational/bunrepo: bun ORM over MySQL, PostgreSQL or SQLite
  - relational/pgxrepo: pgx and squirrel over PostgreSQL
  - tablestore: a DynamoDB partition/row table
  - memory: in-process tables with snapshot transactions

Every backend fault is translated at the repository boundary into the kinds
of the errors package. Writes on a relational session or memory store can be
grouped in a reentrant unitofwork.UnitOfWork.

Basic Usage:

	// Open a session and build a repository
	session, _ := bunrepo.Open(ctx, bunrepo.Config{Driver: "postgres", DSN: dsn})
	users := bunrepo.New[User, int64](session)

	// Register it in a catalog
	catalog := entityrepo.NewCatalog()
	_ = entityrepo.Register[User, int64](catalog, "users", users)
	_ = catalog.RegisterSession("main", session)

	// Retrieve the second page of active users, newest first
	repo, _ := entityrepo.Get[User, int64](catalog, "users")
	page, err := repo.Retrieve(ctx, query.New[User]().
		Where(query.SQL[User](sq.Eq{"active": true})).
		OrderBy(query.Desc[User]("created_at", nil)).
		Page(1, 20).
		Build())
*/
package entityrepo
