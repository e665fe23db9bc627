// Package service implements the metadata engine and the object operations
// built on top of it.
//
// # Services
//
// MetadataService owns the class hierarchy, the attribute registry and the
// containment rules. Reads are answered from an in-memory schema.Snapshot
// under a read lock. Writes take the write lock, persist through the
// repository in one transaction and only then mutate the snapshot, so a
// failed write leaves both untouched.
//
// ObjectService creates, reads, updates, moves and deletes instances. It
// checks placement against the containment rules, converts values through
// the materializer and evaluates validators.
//
// # Mandatory Attributes
//
// Making an attribute mandatory scans every instance of the owning class and
// its subclasses. The scan runs without holding the schema lock: the service
// records the snapshot and data versions, scans with bounded concurrency,
// then commits under the write lock only if neither version moved. After
// MaxScanRetries failed attempts the scan runs under the write lock.
//
// # Event System
//
// Every successful write publishes an Event on the EventBus so caches held
// by presentation code can be invalidated.
package service
