// Package metrics declares the coordinator's Prometheus collectors: ring
// size, server counts per membership status, sweep duration, and per-RPC
// latency histograms. Collectors are registered against an explicit
// prometheus.Registerer (via promauto.With) rather than the global
// default registry, so a coordinator can be constructed more than once in
// a test process without "duplicate metrics collector registration"
// panics.
package metrics
