// Package membership tracks the set of known chunk servers and drives each
// one through the coordinator's heartbeat state machine:
//
//	Initial → Healthy ↔ Suspect → Failed
//
// Table owns the map of known servers and the pure per-sweep transition
// logic (Sweep). Sweeper is the one-shot, self-rearming timer that invokes
// a sweep at a fixed interval without ever letting two sweeps run
// concurrently or piling up on a slow host.
//
// Table holds no lock of its own: it is driven by the coordinator while it
// holds the single coordinator lock (see internal/coordinator), the same
// way internal/ring is. Sweeper has a small mutex that guards only its own
// enabled flag and timer.
package membership
