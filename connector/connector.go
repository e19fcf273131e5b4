// Package connector implements the engine's source/sink boundary: the
// StreamConnector contract and five concrete connectors (an in-memory
// generator, a literal VALUES connector, a stdout sink, a no-op sink,
// and a CSV file source/sink), each a direct port of one
// connector/*.rs file from the original.
package connector

import (
	"context"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/stream"
)

// StreamConnector is the boundary between the executor runtime and the
// outside world: a source yields a channel of results from Read, a
// sink accepts chunks via Write, and any connector can observe barrier
// crossings via OnReceiveBarrier (a CSV sink flushes there).
type StreamConnector interface {
	Read(ctx context.Context) <-chan stream.Result
	Write(c array.Chunk) error
	OnReceiveBarrier(b checkpoint.Barrier) error
}

// ColumnIDs identifies which table columns a connector is bound to, in
// scan/insert order — the original threads an equivalent Vec<ColumnId>
// into every connector constructor.
type ColumnIDs []uint32
