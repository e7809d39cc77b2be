// Package placement owns the coordinator's authoritative file table and
// the chunk→locations map recording which servers hold each chunk.
//
// Table.WriteFile, GetFile, FetchFileInfo and DeleteFile are the four
// operations the coordinator's RPC facade exposes almost directly. None of
// them talk to the ring themselves except through the ReplicaSource they
// are given, so Table stays ignorant of hashing, vnodes, or membership
// status — it only knows how to record and look up the outcome of a
// placement decision.
//
// Table is not internally synchronized; callers hold the coordinator lock
// for the duration of any call, the same as internal/ring and
// internal/membership.
package placement
