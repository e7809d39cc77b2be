// Package meta defines the core data model shared by the coordinator's
// placement, membership, and rebalance subsystems: the identity of a chunk
// server, the handle format for a versioned chunk, and the in-memory
// records the coordinator treats as authoritative for its process
// lifetime (spec: metadata is not persisted to disk).
//
// None of the types here carry their own synchronization. Callers
// (internal/ring, internal/membership, internal/placement,
// internal/coordinator) are expected to mutate them only while holding
// the coordinator lock; see internal/coordinator for that contract.
package meta
