// Package ring implements the coordinator's consistent-hash ring: the
// structure that decides which physical chunk servers hold which chunks.
//
// # Overview
//
// A Ring is a sorted set of virtual-node hash points, each owned by
// exactly one physical Server. V virtual nodes per server (default 20,
// see DefaultVirtualNodes) smooth the load each physical server receives;
// Replicas deduplicates by physical server ID so that no chunk is ever
// replicated twice onto the same host.
//
// # Side effects are injected, not embedded
//
// Add and Remove accept callbacks (onMigrate, onRedistribute) rather than
// mutating Placement or Membership directly. This keeps Ring a pure
// placement structure: it knows nothing about files, chunk handles beyond
// their hash, or server health. The coordinator (internal/coordinator,
// internal/rebalance) owns what the callbacks actually do.
//
// # Thread safety
//
// Ring is not internally synchronized. Callers are expected to hold the
// coordinator lock for the duration of any Add, Remove, or Replicas call
// that must observe a consistent ring; see internal/coordinator.
package ring
