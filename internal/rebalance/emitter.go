package rebalance

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kkyrenc/mini-gfs/internal/meta"
	"github.com/kkyrenc/mini-gfs/internal/transport"
)

// NopEmitter discards every instruction. Useful for tests and for running
// a coordinator with rebalance bookkeeping but no chunk-server transport
// configured.
type NopEmitter struct{}

// Emit implements Emitter by doing nothing.
func (NopEmitter) Emit(context.Context, Instruction) error { return nil }

// HTTPEmitter delivers instructions to chunk servers over HTTP, POSTing to
// the /internal/migrate or /internal/redistribute endpoint cmd/chunkserver
// exposes. A ServerID is used directly as the request's host:port address,
// per meta.ServerID's documented meaning.
type HTTPEmitter struct {
	Log logrus.FieldLogger
}

// Emit delivers instr to the chunk server(s) it names. A migrate
// instruction is sent once, to its single target; a redistribute
// instruction is fanned out to every target concurrently via an
// errgroup, since each target independently needs to know to
// re-replicate. If any target fails, the first failure is returned, not
// swallowed; the caller logs it and does not re-send the instruction.
func (e HTTPEmitter) Emit(ctx context.Context, instr Instruction) error {
	switch instr.Kind {
	case KindMigrate:
		if len(instr.To) != 1 {
			return fmt.Errorf("rebalance: migrate instruction %s has %d targets, want 1", instr.ID, len(instr.To))
		}
		return transport.PostJSON(ctx, migrateURL(instr.To[0]), transport.MigrateRequest{
			ChunkHandle: string(instr.Chunk),
			FromAddr:    string(instr.From),
		}, nil)

	case KindRedistribute:
		addrs := make([]string, len(instr.To))
		for i, id := range instr.To {
			addrs[i] = string(id)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range instr.To {
			id := id
			g.Go(func() error {
				return transport.PostJSON(gctx, redistributeURL(id), transport.RedistributeRequest{
					ChunkHandle: string(instr.Chunk),
					TargetAddrs: addrs,
				}, nil)
			})
		}
		return g.Wait()

	default:
		return fmt.Errorf("rebalance: unknown instruction kind %q", instr.Kind)
	}
}

func migrateURL(addr meta.ServerID) string {
	return fmt.Sprintf("http://%s/internal/migrate", addr)
}

func redistributeURL(addr meta.ServerID) string {
	return fmt.Sprintf("http://%s/internal/redistribute", addr)
}
