// Package domain defines the core types of the assetgraph metadata engine.
//
// This package contains the entities and value objects that describe an
// inventory model: the classes that exist, the attributes they carry, the
// containment rules between them, and the stored instances those classes
// describe.
//
// # Core Types
//
// Class is a node of the single-inheritance class tree. Every class except the
// root has exactly one parent. Abstract classes can not be instantiated but are
// expanded into their concrete descendants wherever a rule names them.
//
// Attribute is owned by one class and inherited by all of its descendants. Its
// MappingKind decides how a value is stored: as a raw property on the instance
// (Primitive, Date, Timestamp), as tagged relationship edges (ManyToOne,
// ManyToMany) or as a blob kept out of the textual representation (Binary).
//
// ContainmentRule states that instances of one class may be placed inside
// instances of another, either in the primary containment tree or in the
// special overlay hierarchy.
//
// Instance is a stored object: a property bag plus ordered outgoing
// Relationship edges, each tagged with the attribute it realises.
//
// # Write Plans
//
// WritePlan is the pure description of an attribute write produced by the
// materializer. The object service applies it to the store in a transaction.
//
// # Design Principles
//
// - No database or external dependencies
// - Closed enumerations with exhaustive switches
// - Pure domain logic without infrastructure concerns
package domain
