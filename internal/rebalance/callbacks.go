package rebalance

import (
	"github.com/kkyrenc/mini-gfs/internal/meta"
	"github.com/kkyrenc/mini-gfs/internal/placement"
	"github.com/kkyrenc/mini-gfs/internal/ring"
)

// NewMigrateFunc returns a ring.MigrateFunc that, for each chunk Ring
// decides must move on a join, updates both servers' chunk sets and
// table's chunk_locations in place (preserving I3) and enqueues the
// corresponding Instruction for later emission.
func NewMigrateFunc(table *placement.Table, queue *Queue) ring.MigrateFunc {
	return func(from, to *meta.Server, chunk meta.Chunk) {
		from.RemoveChunk(chunk.Handle)
		to.AddChunk(chunk.Handle)
		table.RecordMigration(chunk.Handle, from, to)

		queue.push(newInstruction(KindMigrate, chunk.Handle, from.ID, []meta.ServerID{to.ID}))
	}
}

// NewRedistributeFunc returns a ring.RedistributeFunc that, for each chunk
// a departing server held, reconciles chunk_locations and every affected
// server's chunk set against the freshly computed target set, then
// enqueues the corresponding Instruction.
func NewRedistributeFunc(table *placement.Table, queue *Queue) ring.RedistributeFunc {
	return func(chunk meta.Chunk, targets []*meta.Server) {
		old := table.Locations(chunk.Handle)

		keep := make(map[meta.ServerID]bool, len(targets))
		for _, s := range targets {
			if s != nil {
				keep[s.ID] = true
			}
		}
		for _, s := range old {
			if s != nil && !keep[s.ID] {
				s.RemoveChunk(chunk.Handle)
			}
		}
		for _, s := range targets {
			if s != nil {
				s.AddChunk(chunk.Handle)
			}
		}
		table.ReplaceLocations(chunk.Handle, targets)

		to := make([]meta.ServerID, 0, len(targets))
		for _, s := range targets {
			if s != nil {
				to = append(to, s.ID)
			}
		}
		queue.push(newInstruction(KindRedistribute, chunk.Handle, "", to))
	}
}
