package connector

import (
	"context"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/types"
	"github.com/streamql/streamql/stream"
)

// processingWindowSize is the engine-wide default batch size, matching
// the original's PROCESSING_WINDOW_SIZE. sql/rowexec declares its own
// constant of the same value for hash-aggregate flush batching.
const processingWindowSize = 1024

// ValueConnector is a source over a literal row set — the connector an
// INSERT ... VALUES statement's executor reads from. Rows are already
// fully evaluated to types.Value by the binder/executor by the time
// they reach here, unlike the original's RecExpr-per-cell + dummy-chunk
// evaluation (there is no benefit to deferring evaluation in a
// GC'd language with no borrow-checker reason to stage it).
type ValueConnector struct {
	columnKinds []types.Kind
	rows        [][]types.Value
}

func NewValueConnector(columnKinds []types.Kind, rows [][]types.Value) *ValueConnector {
	return &ValueConnector{columnKinds: columnKinds, rows: rows}
}

func (v *ValueConnector) Read(ctx context.Context) <-chan stream.Result {
	out := make(chan stream.Result)
	go func() {
		defer close(out)
		for start := 0; start < len(v.rows); start += processingWindowSize {
			end := start + processingWindowSize
			if end > len(v.rows) {
				end = len(v.rows)
			}
			batch := v.rows[start:end]
			builders := make([]*array.Builder, len(v.columnKinds))
			for i, k := range v.columnKinds {
				builders[i] = array.NewBuilder(k, len(batch))
			}
			for _, row := range batch {
				for i, val := range row {
					builders[i].Push(val)
				}
			}
			arrays := make([]array.Array, len(builders))
			for i, b := range builders {
				arrays[i] = b.Finish()
			}
			select {
			case out <- stream.Result{Msg: stream.ChunkMessage(array.NewChunk(arrays))}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (v *ValueConnector) Write(c array.Chunk) error { return nil }

func (v *ValueConnector) OnReceiveBarrier(b checkpoint.Barrier) error { return nil }
