package connector

import (
	"context"
	"time"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/types"
	"github.com/streamql/streamql/stream"
)

// defaultGenSize is the row count the generator emits per column per
// tick, matching data_gen.rs's DEFAULT_SIZE.
const defaultGenSize = 10

// DataGenSource is a synthetic Int32 source: every tick it emits
// defaultGenSize rows per column, each row i holding i+columnID, for
// 99 ticks one second apart — a fixed-duration load generator, not an
// infinite one, matching the original's `for i in 1..100`.
type DataGenSource struct {
	columnIDs ColumnIDs
}

func NewDataGenSource(columnIDs ColumnIDs) *DataGenSource {
	return &DataGenSource{columnIDs: columnIDs}
}

func (s *DataGenSource) Read(ctx context.Context) <-chan stream.Result {
	out := make(chan stream.Result)
	go func() {
		defer close(out)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for tick := 1; tick < 100; tick++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			builders := make([]*array.Builder, len(s.columnIDs))
			for i := range builders {
				builders[i] = array.NewBuilder(types.Int32, defaultGenSize)
			}
			for row := 0; row < defaultGenSize; row++ {
				for ci, colID := range s.columnIDs {
					builders[ci].Push(types.Int32Value(int32(row) + int32(colID)))
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

func (s *DataGenSource) Write(c array.Chunk) error { return nil }

func (s *DataGenSource) OnReceiveBarrier(b checkpoint.Barrier) error { return nil }
