/*
Package unitofwork provides a reentrant transaction scope over one backend session.

Nested Begin calls share a single physical transaction:

	uow := unitofwork.New(session)
	uow.Begin(ctx)   // depth 1, physical begin
	uow.Begin(ctx)   // depth 2
	uow.Commit(ctx)  // depth 1, nothing happens
	uow.Rollback(ctx) // depth 0, physical rollback of everything

An inner Commit only decrements the depth. The work becomes durable when the
outermost scope commits, and is discarded if it rolls back. Commit or Rollback
without an outstanding Begin returns ErrNoActiveTransaction.
*/
package unitofwork
