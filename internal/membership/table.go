package membership

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kkyrenc/mini-gfs/internal/meta"
)

// Table is the coordinator's table of known chunk servers, keyed by
// meta.ServerID. The zero value is not usable; construct with NewTable.
type Table struct {
	servers map[meta.ServerID]*meta.Server
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{servers: make(map[meta.ServerID]*meta.Server)}
}

// Register adds a freshly known server in meta.StatusInitial. It returns
// ErrAlreadyRegistered if id is already known; re-registering a previously
// failed server requires Unregister first.
func (t *Table) Register(id meta.ServerID) (*meta.Server, error) {
	if _, exists := t.servers[id]; exists {
		return nil, ErrAlreadyRegistered
	}
	s := meta.NewServer(id)
	t.servers[id] = s
	return s, nil
}

// Unregister drops a server from the table, returning it and true if it was
// known. The caller is responsible for removing it from the ring and
// redistributing its chunks before (or as part of) this call; Unregister
// itself only forgets the bookkeeping record.
func (t *Table) Unregister(id meta.ServerID) (*meta.Server, bool) {
	s, ok := t.servers[id]
	if !ok {
		return nil, false
	}
	delete(t.servers, id)
	return s, true
}

// Heartbeat records a liveness ping from id at timestamp now, storing the
// server's self-reported remaining capacity. It does not itself advance the
// state machine — that only happens on the next Sweep — and reports false
// if id is unknown (the caller should log and ignore, not fail the RPC).
func (t *Table) Heartbeat(id meta.ServerID, remainingSpace int, now int64) bool {
	s, ok := t.servers[id]
	if !ok {
		return false
	}
	s.LastUpdate = now
	s.Remains = remainingSpace
	return true
}

// Get returns the server known by id, if any.
func (t *Table) Get(id meta.ServerID) (*meta.Server, bool) {
	s, ok := t.servers[id]
	return s, ok
}

// Len reports the number of known servers, regardless of status.
func (t *Table) Len() int {
	return len(t.servers)
}

// All returns every known server in ascending ID order, for deterministic
// iteration by callers that need to sweep or list the whole table.
func (t *Table) All() []*meta.Server {
	ids := make([]meta.ServerID, 0, len(t.servers))
	for id := range t.servers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*meta.Server, len(ids))
	for i, id := range ids {
		out[i] = t.servers[id]
	}
	return out
}

// Healthy returns, in ascending ID order, every server currently in
// meta.StatusHealthy — the set eligible to be handed out by Ring.Replicas
// in spirit (Ring tracks its own membership; this is for reporting/metrics).
func (t *Table) Healthy() []*meta.Server {
	var out []*meta.Server
	for _, s := range t.All() {
		if s.Status == meta.StatusHealthy {
			out = append(out, s)
		}
	}
	return out
}

// Sweep applies one pass of the heartbeat state machine to every known
// server, comparing now against each server's LastUpdate against interval
// to decide freshness:
//
//	Initial  + fresh     -> Healthy  (activate)
//	Initial  + stale      -> Initial (no change; never heartbeated yet)
//	Healthy  + fresh      -> Healthy
//	Healthy  + stale      -> Suspect
//	Suspect  + fresh      -> Healthy
//	Suspect  + stale      -> Failed  (deactivate)
//	Failed   + fresh      -> Healthy (activate; rejoin)
//	Failed   + stale      -> Failed
//
// activate and deactivate are invoked synchronously for the two transitions
// that change ring membership; both may be nil. Sweep visits servers in
// ascending ID order so repeated sweeps over unchanged state produce the
// same sequence of activate/deactivate calls.
func (t *Table) Sweep(now int64, interval time.Duration, log logrus.FieldLogger, activate, deactivate func(*meta.Server)) {
	threshold := int64(interval.Seconds())
	for _, s := range t.All() {
		fresh := s.LastUpdate != 0 && now-s.LastUpdate <= threshold

		switch s.Status {
		case meta.StatusInitial:
			if fresh {
				s.Status = meta.StatusHealthy
				if activate != nil {
					activate(s)
				}
			}
		case meta.StatusHealthy:
			if !fresh {
				s.Status = meta.StatusSuspect
				if log != nil {
					log.WithField("server_id", s.ID).Warn("chunk server missed heartbeat, marking suspect")
				}
			}
		case meta.StatusSuspect:
			if fresh {
				s.Status = meta.StatusHealthy
			} else {
				s.Status = meta.StatusFailed
				if log != nil {
					log.WithField("server_id", s.ID).Warn("chunk server still unreachable, marking failed")
				}
				if deactivate != nil {
					deactivate(s)
				}
			}
		case meta.StatusFailed:
			if fresh {
				s.Status = meta.StatusHealthy
				if log != nil {
					log.WithField("server_id", s.ID).Info("chunk server reachable again, rejoining ring")
				}
				if activate != nil {
					activate(s)
				}
			}
		}
	}
}
