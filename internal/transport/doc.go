// Package transport provides the coordinator's HTTP client helpers for
// talking to chunk servers: rebalance instructions (migrate, redistribute)
// and, in the future, anything else that needs a JSON-over-HTTP round
// trip to a chunk server's address.
//
// The request/response shapes here are the wire contract between the
// coordinator and cmd/chunkserver; the coordinator's emitter
// (internal/rebalance) and cmd/chunkserver both import this package rather
// than redeclaring the JSON tags independently.
package transport
