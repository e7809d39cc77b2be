// Package rebalance turns Ring's migrate/redistribute callbacks into
// concrete, emitted instructions and applies their bookkeeping side
// effects to Placement and Membership, as required by I3 (Server.Chunks
// stays a denormalized index of Placement's chunk_locations).
//
// Instruction is the unit of work handed to an Emitter; the wire-level
// byte transfer it describes is explicitly out of scope here (see
// HTTPEmitter, which only notifies a chunk server that a transfer should
// happen — the chunk server performs it). Both emission paths are
// best-effort: the coordinator logs a failed Emit and drops the
// instruction; it is not re-sent.
package rebalance
