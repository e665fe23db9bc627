// Package repository defines the data access interfaces for assetgraph.
//
// Metadata and inventory share one directed labeled graph: classes,
// attributes, instances and list items are nodes; inheritance, attribute
// ownership, containment rules, class membership, containment and
// relationships are edges. The actual implementation is in the sqlite
// subpackage.
//
// # Stores
//
// SchemaStore persists the metadata the service keeps in memory and
// reloads at startup. ObjectStore persists instances; relationship edges
// carry the name of the attribute they realise in their tag.
//
// # Not Found
//
// Lookups return nil, nil when a row is absent. Callers decide whether that
// is an error.
package repository
