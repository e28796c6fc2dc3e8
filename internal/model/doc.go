// Package model defines the value records at the heart of the dataflow
// system: compute graphs, data objects, tasks, invocation contexts,
// executors, and the append-only state-change log.
//
// Everything here is an immutable-by-convention value exchanged by copy
// with an external ordered key-value store. No entity holds a live
// reference to another; cross-entity relationships are string identities
// (namespace, graph, function, invocation names) resolved externally.
// Derived keys double as business identity and storage/sort keys, so
// their exact byte formats are compatibility contracts.
//
// Nothing in this package blocks, locks, or performs I/O. Atomicity of
// read-modify-write sequences (analytics updates, outcome finalization)
// is the store's responsibility.
package model
