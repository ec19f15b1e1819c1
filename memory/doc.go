/*
Package memory is an in-process backend for the repository contracts.

A Store holds one table per entity type and is shared by every repository
created on it. It implements unitofwork.Transactor, so a unit of work over a
Store commits or discards all writes made through its repositories:

	store := memory.NewStore()
	users := memory.New[User, string](store)
	uow := unitofwork.New(store)

	err := uow.Run(ctx, func(ctx context.Context) error {
	    return users.Create(ctx, u)
	})

Filters and sorts are evaluated with their in-memory rendering (query.Match
and Sort.Less). Navigation members are served by loaders registered with
WithReference and WithCollection.

The WithCreateError, WithUpdateError and WithDeleteError setters make a
repository fail on demand, which is how service and caller code is tested
against backend faults.
*/
package memory
