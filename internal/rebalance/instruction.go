package rebalance

import (
	"context"

	"github.com/google/uuid"

	"github.com/kkyrenc/mini-gfs/internal/meta"
)

// Kind identifies what an Instruction asks a chunk server to do.
type Kind string

const (
	// KindMigrate asks To's chunk server to pull Chunk from From: ring
	// ownership moved because a newly joined server's virtual node now
	// sits between the chunk's hash and its old owner.
	KindMigrate Kind = "migrate"

	// KindRedistribute asks each address in To to re-replicate Chunk
	// among themselves, because their holder set changed when a server
	// left the ring.
	KindRedistribute Kind = "redistribute"
)

// Instruction is one unit of rebalance work produced by a Ring callback.
// It carries no transport details of its own — an Emitter decides how (or
// whether) to deliver it.
type Instruction struct {
	ID    string
	Kind  Kind
	Chunk meta.ChunkHandle
	From  meta.ServerID   // empty for KindRedistribute
	To    []meta.ServerID // single element for KindMigrate
}

func newInstruction(kind Kind, chunk meta.ChunkHandle, from meta.ServerID, to []meta.ServerID) Instruction {
	return Instruction{
		ID:    uuid.NewString(),
		Kind:  kind,
		Chunk: chunk,
		From:  from,
		To:    to,
	}
}

// Emitter delivers a rebalance Instruction to whatever actually moves
// bytes between chunk servers. The coordinator never calls Emit while
// holding its lock: Ring's callbacks only enqueue instructions (see
// Queue) and update in-memory bookkeeping, and the coordinator drains the
// queue and calls Emit only after releasing the lock.
type Emitter interface {
	Emit(ctx context.Context, instr Instruction) error
}
