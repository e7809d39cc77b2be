package ring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkyrenc/mini-gfs/internal/meta"
)

func TestAddAndLookup(t *testing.T) {
	r := New(100)
	s1 := meta.NewServer("10.0.0.1")
	s2 := meta.NewServer("10.0.0.2")
	r.Add(s1, nil)
	r.Add(s2, nil)

	one := r.Replicas("some_key", 1)
	require.Len(t, one, 1)
	assert.Contains(t, []meta.ServerID{"10.0.0.1", "10.0.0.2"}, one[0].ID)

	three := r.Replicas("some_key", 3)
	assert.Len(t, three, 2, "short list: only two physical servers exist")
	assert.NotEqual(t, three[0].ID, three[1].ID)
}

func TestRemoveAndReroute(t *testing.T) {
	r := New(100)
	s1 := meta.NewServer("10.0.0.1")
	s2 := meta.NewServer("10.0.0.2")
	r.Add(s1, nil)
	r.Add(s2, nil)

	r.Remove("10.0.0.1", 3, nil)

	one := r.Replicas("some_key", 1)
	require.Len(t, one, 1)
	assert.Equal(t, meta.ServerID("10.0.0.2"), one[0].ID)
}

func TestReplicasEmptyRingReturnsPlaceholders(t *testing.T) {
	r := New(20)
	got := r.Replicas("key", 3)
	require.Len(t, got, 3)
	for _, s := range got {
		assert.Nil(t, s)
	}
}

func TestReplicasDeterministic(t *testing.T) {
	r := New(50)
	for i := 0; i < 5; i++ {
		r.Add(meta.NewServer(meta.ServerID(fmt.Sprintf("10.0.0.%d", i))), nil)
	}

	first := r.Replicas("stable-key", 3)
	second := r.Replicas("stable-key", 3)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestReplicasUniquePhysicalServers(t *testing.T) {
	r := New(20)
	for i := 0; i < 4; i++ {
		r.Add(meta.NewServer(meta.ServerID(fmt.Sprintf("s%d", i))), nil)
	}

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		got := r.Replicas(key, 4)
		seen := map[meta.ServerID]bool{}
		for _, s := range got {
			require.NotNil(t, s)
			assert.False(t, seen[s.ID], "duplicate physical server in replica set")
			seen[s.ID] = true
		}
	}
}

func TestEvenDistributionStatistical(t *testing.T) {
	r := New(100)
	servers := make([]*meta.Server, 4)
	for i := range servers {
		servers[i] = meta.NewServer(meta.ServerID(fmt.Sprintf("srv-%d", i)))
		r.Add(servers[i], nil)
	}

	counts := make(map[meta.ServerID]int)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		got := r.Replicas(key, 1)
		require.Len(t, got, 1)
		counts[got[0].ID]++
	}

	for _, s := range servers {
		assert.Greater(t, counts[s.ID], 10, "server %s starved of assignments", s.ID)
	}
}

func TestAddTriggersMigration(t *testing.T) {
	r := New(100)
	s1 := meta.NewServer("10.0.0.1")
	s1.AddChunk("c1")
	r.Add(s1, nil)

	type migration struct {
		from, to meta.ServerID
		chunk    meta.ChunkHandle
	}
	var calls []migration

	s2 := meta.NewServer("10.0.0.2")
	r.Add(s2, func(from, to *meta.Server, chunk meta.Chunk) {
		calls = append(calls, migration{from.ID, to.ID, chunk.Handle})
		from.RemoveChunk(chunk.Handle)
		to.AddChunk(chunk.Handle)
	})

	// Whether c1 migrates depends on where its hash falls relative to
	// s2's vnodes, but across 100 vnodes with only two servers it is
	// overwhelmingly likely to be claimed by at least one of them; require
	// the callback actually fired rather than letting a regressed no-op
	// Add pass silently.
	require.NotEmpty(t, calls)
	for _, m := range calls {
		assert.Equal(t, meta.ServerID("10.0.0.1"), m.from)
		assert.Equal(t, meta.ServerID("10.0.0.2"), m.to)
		assert.Equal(t, meta.ChunkHandle("c1"), m.chunk)
	}
}

func TestRemoveTriggersRedistributeOncePerChunk(t *testing.T) {
	r := New(20)
	s1 := meta.NewServer("10.0.0.1")
	s2 := meta.NewServer("10.0.0.2")
	s3 := meta.NewServer("10.0.0.3")
	s1.AddChunk("c1")
	r.Add(s1, nil)
	r.Add(s2, nil)
	r.Add(s3, nil)

	var calls int
	r.Remove("10.0.0.1", 3, func(chunk meta.Chunk, targets []*meta.Server) {
		calls++
		assert.Equal(t, meta.ChunkHandle("c1"), chunk.Handle)
	})

	assert.Equal(t, 1, calls)
}

func TestRingConsistencyAfterChurn(t *testing.T) {
	r := New(30)
	ids := []meta.ServerID{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		r.Add(meta.NewServer(id), nil)
	}
	r.Remove("c", 2, nil)
	r.Remove("a", 2, nil)
	r.Add(meta.NewServer("f"), nil)

	assert.Equal(t, 4, r.Size())
	got := r.Replicas("any-key", 4)
	seen := map[meta.ServerID]bool{}
	for _, s := range got {
		require.NotNil(t, s)
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
}
