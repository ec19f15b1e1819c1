/*
Package registry holds per-entity-type metadata resolved once when a
repository is constructed, so no repository introspects entities per call.

Key accessors map an entity key to the primary-key values of its table:

	registry.RegisterKeyAccessor[Order](registry.KeyAccessor[OrderKey](func(k OrderKey) []any {
	    return []any{k.Tenant, k.Number}
	}))

Type names override the name used in error messages and in the EntityType
attribute written to table store items:

	registry.RegisterTypeName[Order]("Order")

The registry is thread-safe and should be populated during initialization,
typically in init() functions.
*/
package registry
