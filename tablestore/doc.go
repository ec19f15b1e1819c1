/*
Package tablestore implements the repository contracts on a partitioned
key-value table (DynamoDB).

Entities are addressed by Key{Partition, Row}. Each stored item carries the
entity attributes plus four system attributes:

	PK          partition key
	SK          row key
	EntityType  discriminates entity types sharing one table
	Timestamp   RFC 3339 write time

The table has no secondary indexes, so Retrieve and filtered Count scan every
item of the entity type and evaluate the query in memory. Filters and sorts
must therefore carry their in-memory rendering (query.Match, a Sort.Less).
Include paths and the bulk operations return a NotImplementedError.

Key operations only see items of their own entity type: an item of another
type under the same key reads as absent and fails Update and Delete with
NotFound. A key still holds a single item, so Create over it fails with
AlreadyExists. Every call is sent once; the client does not retry.

A repository is built from a connection string:

	repo, err := tablestore.New[Note](ctx,
	    "Region=eu-west-1;AccountName=acme;AccountKey=...", "entities")

or, for a local emulator, "UseDevelopmentStorage=true". The table is created
on first use when missing.
*/
package tablestore
