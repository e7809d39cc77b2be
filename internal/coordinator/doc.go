// Package coordinator is the metadata master of the cluster: it combines
// a consistent-hash ring (internal/ring), a chunk-server membership table
// (internal/membership), a file/placement table (internal/placement), and
// rebalance-instruction emission (internal/rebalance) behind one service
// facade and one lock.
//
// # Architecture
//
//	┌────────────────────────────────────────────┐
//	│               Coordinator                   │
//	├────────────────────────────────────────────┤
//	│  mu sync.Mutex   (the coordinator lock)      │
//	│                                              │
//	│  ring         *ring.Ring                     │
//	│  members      *membership.Table              │
//	│  files        *placement.Table                │
//	│  queue        *rebalance.Queue                │
//	│  sweeper      *membership.Sweeper             │
//	└────────────────────────────────────────────┘
//
// # Locking
//
// The reference design calls for a reentrant lock, because the sweeper's
// activate/deactivate callbacks invoke Ring methods whose own callbacks
// (migrate, redistribute) write back into Placement and Membership. Go's
// sync.Mutex is not reentrant, so Coordinator avoids re-entering the
// public API from inside a locked section entirely: every exported method
// acquires the lock exactly once, and the callbacks it builds
// (migrateFunc, redistributeFunc) never call back into an exported,
// lock-acquiring method. Ring and Placement's own callback-based designs
// make this straightforward — the callbacks close over already-locked
// data structures instead of calling Coordinator methods.
//
// # Suspension points
//
// No method blocks on I/O while holding the lock. Ring's migrate and
// redistribute callbacks only enqueue a rebalance.Instruction and update
// in-memory bookkeeping; the actual network call to a chunk server
// happens after the lock is released, once runSweep or
// UnregisterChunkServer drains the queue and calls emit.
package coordinator
