/*
Package repository defines the backend-agnostic repository contracts and the
core logic every backend shares.

Contracts:

	ReadOnlyRepository[T, K]  Count, Exists, Retrieve, RetrieveByKey
	Repository[T, K]          + Create, Update, Delete
	BulkRepository[T, K]      CreateBulk, UpdateBulk, DeleteBulk

Entities satisfy Entity[K] by exposing Key() K. Every method takes a
context.Context that is forwarded to the backend client.

Shared core:
  - argument guards (CheckKey, CheckEntity, CheckBatch) raising caller-contract errors
  - CheckCount, which rejects counts beyond the 32-bit signed range
  - LoadIncludes, the reference-then-collection eager loading fallback
  - Validator, struct-tag validation with suspension for bulk attach loops

Implementations live in relational/bunrepo, relational/pgxrepo, tablestore and memory.
*/
package repository
