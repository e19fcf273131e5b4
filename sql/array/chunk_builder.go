package array

import "github.com/streamql/streamql/sql/types"

// ChunkBuilder accumulates rows column-by-column and emits a finished
// Chunk every time it fills to capacity, mirroring rulink's
// DataChunkBuilder.
type ChunkBuilder struct {
	builders []*Builder
	size     int
	capacity int
}

// NewChunkBuilder creates a builder for the given column kinds, each
// pre-sized to capacity.
func NewChunkBuilder(kinds []types.Kind, capacity int) *ChunkBuilder {
	builders := make([]*Builder, len(kinds))
	for i, k := range kinds {
		builders[i] = NewBuilder(k, capacity)
	}
	return &ChunkBuilder{builders: builders, size: 0, capacity: capacity}
}

// PushRow appends one row; when the builder reaches capacity it resets
// and returns the finished chunk. Returns (chunk, true) only when a
// chunk was emitted.
func (cb *ChunkBuilder) PushRow(row []types.Value) (Chunk, bool) {
	for i, v := range row {
		cb.builders[i].Push(v)
	}
	cb.size++
	if cb.size == cb.capacity {
		return cb.Take()
	}
	return Chunk{}, false
}

// Take flushes whatever rows have accumulated so far (even a partial
// batch) into a chunk. Returns (chunk, false) if nothing was pending.
func (cb *ChunkBuilder) Take() (Chunk, bool) {
	size := cb.size
	cb.size = 0
	if size == 0 {
		return Chunk{}, false
	}
	arrays := make([]Array, len(cb.builders))
	for i, b := range cb.builders {
		arrays[i] = b.Take()
		b.Reserve(cb.capacity)
	}
	return NewChunk(arrays), true
}
