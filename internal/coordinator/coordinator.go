package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kkyrenc/mini-gfs/internal/config"
	"github.com/kkyrenc/mini-gfs/internal/meta"
	"github.com/kkyrenc/mini-gfs/internal/membership"
	"github.com/kkyrenc/mini-gfs/internal/metrics"
	"github.com/kkyrenc/mini-gfs/internal/placement"
	"github.com/kkyrenc/mini-gfs/internal/rebalance"
	"github.com/kkyrenc/mini-gfs/internal/ring"
)

// ErrAlreadyExists is returned by RegisterChunkServer when addr is already
// known.
var ErrAlreadyExists = membership.ErrAlreadyRegistered

// ChunkLocation mirrors placement.ChunkLocation but with ServerID already
// rendered to plain strings (network addresses), the shape the RPC facade
// hands to callers.
type ChunkLocation struct {
	Handle  string
	Servers []string
}

// Coordinator is the metadata master: Ring, Membership, Placement and
// Rebalance composed behind a single lock. See doc.go.
type Coordinator struct {
	mu sync.Mutex

	ring    *ring.Ring
	members *membership.Table
	files   *placement.Table
	queue   *rebalance.Queue
	sweeper *membership.Sweeper

	emitter           rebalance.Emitter
	log               logrus.FieldLogger
	metrics           *metrics.Coordinator
	replicaCount      int
	heartbeatInterval time.Duration
	now               func() int64
}

// New constructs a Coordinator from cfg. emitter may be nil (defaults to
// rebalance.NopEmitter), log may be nil (defaults to logrus's standard
// logger), and mtr may be nil (metrics become no-ops).
func New(cfg config.Coordinator, emitter rebalance.Emitter, log logrus.FieldLogger, mtr *metrics.Coordinator) *Coordinator {
	if emitter == nil {
		emitter = rebalance.NopEmitter{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Coordinator{
		ring:              ring.New(cfg.VirtualNodesPerServer),
		members:           membership.NewTable(),
		files:             placement.NewTable(),
		queue:             rebalance.NewQueue(),
		emitter:           emitter,
		log:               log,
		metrics:           mtr,
		replicaCount:      cfg.DefaultReplicaCount,
		heartbeatInterval: cfg.HeartbeatCheckInterval,
		now:               func() int64 { return time.Now().Unix() },
	}
	c.sweeper = membership.NewSweeper(cfg.HeartbeatCheckInterval, c.runSweep)
	return c
}

// Start arms the heartbeat sweeper.
func (c *Coordinator) Start() {
	c.sweeper.Start()
}

// Stop disables the heartbeat sweeper. An in-flight sweep completes
// normally.
func (c *Coordinator) Stop() {
	c.sweeper.Stop()
}

// ForceSweep runs one heartbeat sweep immediately, independent of the
// sweeper's timer. Intended for tests and for an operator-triggered
// out-of-band sweep; production traffic relies on the timer started by
// Start.
func (c *Coordinator) ForceSweep() {
	c.runSweep()
}

func (c *Coordinator) migrateFunc() ring.MigrateFunc {
	return rebalance.NewMigrateFunc(c.files, c.queue)
}

func (c *Coordinator) redistributeFunc() ring.RedistributeFunc {
	return rebalance.NewRedistributeFunc(c.files, c.queue)
}

// RegisterChunkServer adds addr as a newly known chunk server in
// meta.StatusInitial. It returns ErrAlreadyExists if addr is already
// known; the server does not join the ring until the next heartbeat
// sweep observes it fresh.
func (c *Coordinator) RegisterChunkServer(addr string) error {
	c.mu.Lock()
	_, err := c.members.Register(meta.ServerID(addr))
	c.mu.Unlock()

	if err != nil {
		c.log.WithField("addr", addr).Warn("register_chunk_server: already registered")
		return err
	}
	c.log.WithField("addr", addr).Info("chunk server registered")
	return nil
}

// UnregisterChunkServer removes addr, deactivating it in the ring first
// if it was present (triggering redistribution of whatever it held). It
// is not an error if addr is unknown; a warning is logged instead.
func (c *Coordinator) UnregisterChunkServer(addr string) {
	id := meta.ServerID(addr)

	c.mu.Lock()
	_, known := c.members.Get(id)
	c.ring.Remove(id, c.replicaCount, c.redistributeFunc())
	_, existed := c.members.Unregister(id)
	instrs := c.queue.Drain()
	c.mu.Unlock()

	if !known || !existed {
		c.log.WithField("addr", addr).Warn("unregister_chunk_server: unknown address")
	} else {
		c.log.WithField("addr", addr).Info("chunk server unregistered")
	}
	c.emit(instrs)
}

// Heartbeat records a liveness ping from addr. It does not itself drive
// the membership state machine; only the next sweep does. A heartbeat
// from an unknown addr is logged at warning and otherwise ignored.
func (c *Coordinator) Heartbeat(addr string, remains int) {
	c.mu.Lock()
	ok := c.members.Heartbeat(meta.ServerID(addr), remains, c.now())
	c.mu.Unlock()

	if !ok {
		c.log.WithField("addr", addr).Warn("heartbeat: unknown address")
	}
}

// WriteFile creates or overwrites stem.suffix with chunkNum freshly placed
// chunks, each replicated replicaCount-wide (falling back to the
// coordinator's configured default if replicaCount <= 0). It returns the
// handle→addresses mapping for the new generation.
func (c *Coordinator) WriteFile(stem, suffix string, chunkNum, replicaCount int) map[string][]string {
	if replicaCount <= 0 {
		replicaCount = c.replicaCount
	}

	c.mu.Lock()
	placed := c.files.WriteFile(stem, suffix, chunkNum, replicaCount, c.ring, c.log)
	c.mu.Unlock()

	out := make(map[string][]string, len(placed))
	for handle, ids := range placed {
		addrs := make([]string, len(ids))
		for i, id := range ids {
			addrs[i] = string(id)
		}
		out[string(handle)] = addrs
		if c.metrics != nil && len(addrs) < replicaCount {
			c.metrics.DegradedPlacement.Inc()
		}
	}
	return out
}

// GetFile returns the chunk list and current replica addresses for
// stem.suffix in insertion order, or nil if the file is unknown.
func (c *Coordinator) GetFile(stem, suffix string) []ChunkLocation {
	c.mu.Lock()
	locs := c.files.GetFile(stem, suffix)
	c.mu.Unlock()

	if locs == nil {
		return nil
	}
	out := make([]ChunkLocation, len(locs))
	for i, l := range locs {
		addrs := make([]string, len(l.Servers))
		for j, id := range l.Servers {
			addrs[j] = string(id)
		}
		out[i] = ChunkLocation{Handle: string(l.Handle), Servers: addrs}
	}
	return out
}

// FetchFileInfo returns the metadata record for stem.suffix, or nil if
// unknown.
func (c *Coordinator) FetchFileInfo(stem, suffix string) *meta.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files.FetchFileInfo(stem, suffix)
}

// DeleteFile removes stem.suffix and its chunk records. Idempotent: no
// error if the file is unknown.
func (c *Coordinator) DeleteFile(stem, suffix string) {
	c.mu.Lock()
	c.files.DeleteFile(stem, suffix)
	c.mu.Unlock()
}

// runSweep is the sweeper's callback: one full pass over the membership
// table, applying the state-machine transitions, then (outside the lock)
// reporting metrics and emitting any rebalance instructions those
// transitions produced.
func (c *Coordinator) runSweep() {
	start := time.Now()

	c.mu.Lock()
	activate := func(s *meta.Server) { c.ring.Add(s, c.migrateFunc()) }
	deactivate := func(s *meta.Server) { c.ring.Remove(s.ID, c.replicaCount, c.redistributeFunc()) }
	c.members.Sweep(c.now(), c.heartbeatInterval, c.log, activate, deactivate)

	instrs := c.queue.Drain()
	ringSize := c.ring.Size()
	statusCounts := map[string]int{
		meta.StatusInitial.String(): 0,
		meta.StatusHealthy.String(): 0,
		meta.StatusSuspect.String(): 0,
		meta.StatusFailed.String():  0,
	}
	for _, s := range c.members.All() {
		statusCounts[s.Status.String()]++
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		c.metrics.RingServers.Set(float64(ringSize))
		c.metrics.SetServerStatusCounts(statusCounts)
	}
	c.emit(instrs)
}

// emit delivers queued rebalance instructions via the configured Emitter.
// Never called while the coordinator lock is held. An instruction whose
// Emit fails is logged and counted, then dropped: it is not re-queued or
// re-sent by a later sweep.
func (c *Coordinator) emit(instrs []rebalance.Instruction) {
	for _, instr := range instrs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.emitter.Emit(ctx, instr)
		cancel()

		outcome := "ok"
		if err != nil {
			outcome = "error"
			c.log.WithError(err).WithFields(logrus.Fields{
				"instruction_id": instr.ID,
				"kind":           instr.Kind,
				"chunk":          instr.Chunk,
			}).Warn("rebalance instruction failed")
		}
		if c.metrics != nil {
			c.metrics.RebalanceInstrs.WithLabelValues(string(instr.Kind), outcome).Inc()
		}
	}
}
