package connector

import (
	"context"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/stream"
)

// BlackHole discards every chunk it is given — a port of
// black_hole.rs, used to benchmark the executor graph without a real
// sink's I/O cost.
type BlackHole struct{}

func NewBlackHole() *BlackHole { return &BlackHole{} }

func (b *BlackHole) Read(ctx context.Context) <-chan stream.Result {
	out := make(chan stream.Result, 1)
	out <- stream.Result{Err: ErrSinkOnly.New("black_hole")}
	close(out)
	return out
}

func (b *BlackHole) Write(c array.Chunk) error { return nil }

func (b *BlackHole) OnReceiveBarrier(bar checkpoint.Barrier) error { return nil }
