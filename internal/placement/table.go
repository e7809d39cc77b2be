package placement

import (
	"github.com/sirupsen/logrus"

	"github.com/kkyrenc/mini-gfs/internal/meta"
)

// ReplicaSource is the subset of internal/ring.Ring that Table depends on.
// Accepting an interface here keeps Table ignorant of hashing and vnodes;
// in production this is always a *ring.Ring.
type ReplicaSource interface {
	Replicas(key string, n int) []*meta.Server
}

// ChunkLocation pairs a chunk handle with the ServerIDs currently holding
// it, in the order Ring.Replicas returned them.
type ChunkLocation struct {
	Handle  meta.ChunkHandle
	Servers []meta.ServerID
}

// Table is the coordinator's file table and chunk_locations index.
type Table struct {
	files     map[string]*meta.File
	locations map[meta.ChunkHandle][]*meta.Server
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		files:     make(map[string]*meta.File),
		locations: make(map[meta.ChunkHandle][]*meta.Server),
	}
}

// WriteFile creates or overwrites the file named stem.suffix with a fresh
// generation of chunkNum chunks, each placed via ring.Replicas(handle,
// replicaCount). It returns the handle→ServerID mapping the RPC facade
// hands back to the caller, with nil placeholders (empty ring slots)
// filtered out.
//
// Overwriting never mutates the previous generation's chunk records or
// reclaims their locations: it increments File.Version and replaces
// File.Chunks wholesale, so readers mid-flight on generation N are
// unaffected by a concurrent write_file producing N+1.
func (t *Table) WriteFile(stem, suffix string, chunkNum, replicaCount int, ring ReplicaSource, log logrus.FieldLogger) map[meta.ChunkHandle][]meta.ServerID {
	name := meta.FileName(stem, suffix)
	f, ok := t.files[name]
	if !ok {
		f = &meta.File{Name: name}
		t.files[name] = f
	}
	f.Version++

	chunks := make([]meta.Chunk, 0, chunkNum)
	result := make(map[meta.ChunkHandle][]meta.ServerID, chunkNum)

	for i := 0; i < chunkNum; i++ {
		handle := meta.ChunkHandleFor(stem, f.Version, i, suffix)
		servers := ring.Replicas(string(handle), replicaCount)
		t.locations[handle] = servers
		chunks = append(chunks, meta.Chunk{Handle: handle})

		ids := make([]meta.ServerID, 0, len(servers))
		for _, s := range servers {
			if s == nil {
				continue
			}
			s.AddChunk(handle)
			ids = append(ids, s.ID)
		}
		if len(ids) < replicaCount && log != nil {
			log.WithFields(logrus.Fields{
				"handle":   handle,
				"wanted":   replicaCount,
				"assigned": len(ids),
			}).Warn("degraded placement: replica count could not be satisfied")
		}
		result[handle] = ids
	}

	f.Chunks = chunks
	return result
}

// GetFile returns the chunk list and current replica sets for stem.suffix
// in insertion order, or nil if the file is unknown.
func (t *Table) GetFile(stem, suffix string) []ChunkLocation {
	f, ok := t.files[meta.FileName(stem, suffix)]
	if !ok {
		return nil
	}

	out := make([]ChunkLocation, 0, len(f.Chunks))
	for _, c := range f.Chunks {
		out = append(out, ChunkLocation{Handle: c.Handle, Servers: idsOf(t.locations[c.Handle])})
	}
	return out
}

// FetchFileInfo returns the metadata record for stem.suffix, or nil if
// unknown.
func (t *Table) FetchFileInfo(stem, suffix string) *meta.File {
	f, ok := t.files[meta.FileName(stem, suffix)]
	if !ok {
		return nil
	}
	return f
}

// DeleteFile removes the file record for stem.suffix and every one of its
// chunks from chunk_locations and from each holder's chunk set. It is a
// no-op, not an error, if the file is unknown.
func (t *Table) DeleteFile(stem, suffix string) {
	name := meta.FileName(stem, suffix)
	f, ok := t.files[name]
	if !ok {
		return
	}

	for _, c := range f.Chunks {
		for _, s := range t.locations[c.Handle] {
			if s != nil {
				s.RemoveChunk(c.Handle)
			}
		}
		delete(t.locations, c.Handle)
	}
	delete(t.files, name)
}

// Locations returns the current replica set recorded for handle, which may
// be nil if the handle is unknown.
func (t *Table) Locations(handle meta.ChunkHandle) []*meta.Server {
	return t.locations[handle]
}

// ReplaceLocations overwrites chunk_locations[handle] wholesale. Used by
// internal/rebalance's redistribute-on-leave callback.
func (t *Table) ReplaceLocations(handle meta.ChunkHandle, targets []*meta.Server) {
	t.locations[handle] = targets
}

// RecordMigration updates chunk_locations[handle] in place, replacing from
// with to. Used by internal/rebalance's migrate-on-join callback; it is a
// no-op if from does not currently appear for handle.
func (t *Table) RecordMigration(handle meta.ChunkHandle, from, to *meta.Server) {
	servers := t.locations[handle]
	for i, s := range servers {
		if s != nil && s.ID == from.ID {
			servers[i] = to
			return
		}
	}
}

func idsOf(servers []*meta.Server) []meta.ServerID {
	ids := make([]meta.ServerID, 0, len(servers))
	for _, s := range servers {
		if s != nil {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
