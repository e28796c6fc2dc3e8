// Package store persists the dataflow state machine in an embedded ordered
// key-value store (BadgerDB).
//
// Derived entity keys double as sort keys, and the store leans on byte
// order for its two scans that carry meaning: the state-change log is keyed
// by the 8-byte big-endian id so a range scan reads events in creation
// order, and allocations are keyed executor-first with an embedded
// creation-time nanosecond timestamp so one executor's allocations come out
// time-ordered.
//
// The model layer performs no locking; the serialization guarantees it
// delegates (per-key atomicity of analytics read-modify-write, set-once
// processed_at, no overwrite of a terminal task outcome) live here.
package store
