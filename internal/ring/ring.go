package ring

import (
	"crypto/md5" //nolint:gosec // MD5 chosen for wire-compatibility, not security; see hashKey.
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/kkyrenc/mini-gfs/internal/meta"
)

// DefaultVirtualNodes is V, the number of virtual-node hashes synthesized
// per physical server when no explicit count is configured.
const DefaultVirtualNodes = 20

// vnode is one entry on the ring: a virtual-node hash point and the
// physical server it currently belongs to.
type vnode struct {
	hash uint64
	id   meta.ServerID
}

// MigrateFunc is invoked once per chunk that must move from an existing
// server to a newly-added one, because the new server's virtual node now
// sits between the chunk's hash and its old owner. See Add.
type MigrateFunc func(from, to *meta.Server, chunk meta.Chunk)

// RedistributeFunc is invoked once per chunk that was held by a server
// being removed, with the chunk's freshly recomputed replica set. See
// Remove.
type RedistributeFunc func(chunk meta.Chunk, targets []*meta.Server)

// Ring is a sorted map from 128-bit-hash-reduced-to-64-bit points to the
// Server owning each point, plus the set of physical servers currently
// present. See doc.go for the invariants it upholds.
type Ring struct {
	servers         map[meta.ServerID]*meta.Server
	points          []vnode // sorted ascending by hash
	vnodesPerServer int
}

// New returns an empty Ring with the given number of virtual nodes per
// server. A non-positive count falls back to DefaultVirtualNodes.
func New(virtualNodesPerServer int) *Ring {
	if virtualNodesPerServer <= 0 {
		virtualNodesPerServer = DefaultVirtualNodes
	}
	return &Ring{
		vnodesPerServer: virtualNodesPerServer,
		servers:         make(map[meta.ServerID]*meta.Server),
	}
}

// VirtualNodes returns V, this ring's configured virtual nodes per server.
func (r *Ring) VirtualNodes() int {
	return r.vnodesPerServer
}

// Size returns the number of distinct physical servers currently on the
// ring.
func (r *Ring) Size() int {
	return len(r.servers)
}

// hashKey reduces a key to a 64-bit unsigned integer by taking the first
// 8 bytes of its MD5 digest, big-endian. This exact reduction (truncation,
// not modulus) must match across any reimplementation that needs to agree
// on placement with this one.
func hashKey(key string) uint64 {
	sum := md5.Sum([]byte(key)) //nolint:gosec
	return binary.BigEndian.Uint64(sum[:8])
}

func vnodeKey(id meta.ServerID, i int) string {
	return fmt.Sprintf("%s_%d", id, i)
}

// lowerBound returns the index of the first point with hash >= h, or
// len(points) if none exists.
func (r *Ring) lowerBound(h uint64) int {
	return sort.Search(len(r.points), func(i int) bool { return r.points[i].hash >= h })
}

// upperBound returns the index of the first point with hash > h, or
// len(points) if none exists.
func (r *Ring) upperBound(h uint64) int {
	return sort.Search(len(r.points), func(i int) bool { return r.points[i].hash > h })
}

// predecessorServer returns the Server owning the ring point immediately
// before h, wrapping to the last point if h precedes everything on the
// ring. Returns nil if the ring is empty.
func (r *Ring) predecessorServer(h uint64) *meta.Server {
	if len(r.points) == 0 {
		return nil
	}
	idx := r.lowerBound(h)
	if idx == 0 {
		idx = len(r.points)
	}
	return r.servers[r.points[idx-1].id]
}

// Predecessor returns the Server owning the ring point immediately before
// hash h, wrapping at the start of the ring. Returns nil if the ring is
// empty.
func (r *Ring) Predecessor(h uint64) *meta.Server {
	return r.predecessorServer(h)
}

// Successor returns the Server owning the first ring point strictly after
// hash h, wrapping at the end of the ring. Returns nil if the ring is
// empty.
func (r *Ring) Successor(h uint64) *meta.Server {
	if len(r.points) == 0 {
		return nil
	}
	idx := r.upperBound(h)
	if idx == len(r.points) {
		idx = 0
	}
	return r.servers[r.points[idx].id]
}

// insert places a single virtual-node hash on the ring, overwriting
// whatever previously owned that exact point (collisions between
// `id||"_"||i` keys are astronomically rare and not worth special-casing
// beyond last-writer-wins).
func (r *Ring) insert(h uint64, id meta.ServerID) {
	idx := r.lowerBound(h)
	if idx < len(r.points) && r.points[idx].hash == h {
		r.points[idx].id = id
		return
	}
	r.points = slices.Insert(r.points, idx, vnode{hash: h, id: id})
}

// deleteHash removes the ring entry at hash h if it still belongs to id.
func (r *Ring) deleteHash(h uint64, id meta.ServerID) {
	idx := r.lowerBound(h)
	if idx < len(r.points) && r.points[idx].hash == h && r.points[idx].id == id {
		r.points = slices.Delete(r.points, idx, idx+1)
	}
}

// Add brings a server onto the ring. For each of its V virtual nodes, in
// order, it finds the current predecessor and migrates every chunk that
// predecessor holds whose hash now falls at or before the new vnode's
// point — that chunk's ownership boundary has moved to the new server.
// onMigrate is called synchronously for each such chunk and is expected
// to update predecessor/server chunk sets in place (preserving I3) before
// this method continues to the next virtual node, since a later vnode's
// affected set is computed against the already-updated predecessor.
//
// Only after all V vnodes have been swept for migrations are the V hash
// points actually inserted and the server added to the physical set —
// mirroring the reference implementation's two-phase add (sweep against
// the old ring, then commit).
func (r *Ring) Add(server *meta.Server, onMigrate MigrateFunc) {
	hashes := make([]uint64, r.vnodesPerServer)
	for i := range hashes {
		hashes[i] = hashKey(vnodeKey(server.ID, i))
	}

	for _, h := range hashes {
		pred := r.predecessorServer(h)
		if pred == nil || pred.ID == server.ID {
			continue
		}

		var affected []meta.ChunkHandle
		for handle := range pred.Chunks {
			if hashKey(string(handle)) <= h {
				affected = append(affected, handle)
			}
		}
		for _, handle := range affected {
			if onMigrate != nil {
				onMigrate(pred, server, meta.Chunk{Handle: handle})
			}
		}
	}

	for _, h := range hashes {
		r.insert(h, server.ID)
	}
	r.servers[server.ID] = server
}

// Remove takes a server off the ring. It deletes the server's V virtual
// nodes, then for every chunk the removed server held, recomputes a
// replacement replica set from the post-removal ring (replicaCount wide)
// and invokes onRedistribute once per chunk.
//
// Chunks are processed in a deterministic order (handle ascending) so
// repeated calls over the same state produce the same sequence of
// onRedistribute invocations, consistent with Rebalance's idempotence
// requirement.
func (r *Ring) Remove(id meta.ServerID, replicaCount int, onRedistribute RedistributeFunc) {
	server, ok := r.servers[id]
	if !ok {
		return
	}

	for i := 0; i < r.vnodesPerServer; i++ {
		r.deleteHash(hashKey(vnodeKey(id, i)), id)
	}
	delete(r.servers, id)

	handles := make([]meta.ChunkHandle, 0, len(server.Chunks))
	for handle := range server.Chunks {
		handles = append(handles, handle)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	for _, handle := range handles {
		targets := r.Replicas(string(handle), replicaCount)
		if onRedistribute != nil {
			onRedistribute(meta.Chunk{Handle: handle}, targets)
		}
	}
}

// Replicas computes the ordered replica set for key: starting at the
// first vnode hash strictly greater than hash(key), it walks the ring
// clockwise, wrapping at most once, collecting servers whose physical ID
// has not yet appeared, until N distinct servers are collected or the
// ring is exhausted.
//
// If the ring holds fewer than N distinct physical servers, the returned
// slice is shorter than N — callers must tolerate short lists (degraded
// placement). If the ring is empty, Replicas returns a slice of N nil
// placeholders, preserving positional slots for callers that index into
// the result.
func (r *Ring) Replicas(key string, n int) []*meta.Server {
	if n <= 0 {
		return nil
	}
	if len(r.points) == 0 {
		return make([]*meta.Server, n)
	}

	h := hashKey(key)
	start := r.upperBound(h)
	total := len(r.points)

	seen := make(map[meta.ServerID]bool, n)
	result := make([]*meta.Server, 0, n)

	for i := 0; i < total*2 && len(result) < n; i++ {
		idx := (start + i) % total
		id := r.points[idx].id
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, r.servers[id])
	}
	return result
}
