package array

import "github.com/streamql/streamql/sql/types"

// Chunk is an immutable, equal-cardinality batch of column arrays. Once
// built it is never mutated; sharing a Chunk across goroutines (e.g.
// handing it to multiple barrier-wrapped operators) is safe by
// construction — a plain slice is enough, no reference-counted pointer
// is needed since nothing ever writes through it after Finish.
type Chunk struct {
	arrays []Array
}

// NewChunk builds a Chunk from already-finished arrays. All arrays must
// share the same length.
func NewChunk(arrays []Array) Chunk {
	if len(arrays) == 0 {
		return Chunk{arrays: arrays}
	}
	n := arrays[0].Len()
	for _, a := range arrays[1:] {
		if a.Len() != n {
			panic("array: all arrays in a chunk must have the same length")
		}
	}
	return Chunk{arrays: arrays}
}

// Cardinality returns the chunk's row count, or 0 for a column-less chunk.
func (c Chunk) Cardinality() int {
	if len(c.arrays) == 0 {
		return 0
	}
	return c.arrays[0].Len()
}

func (c Chunk) NumColumns() int { return len(c.arrays) }

func (c Chunk) ArrayAt(idx int) Array { return c.arrays[idx] }

func (c Chunk) Arrays() []Array { return c.arrays }

// Row returns a lazy view over row idx's values.
func (c Chunk) Row(idx int) Row {
	return Row{chunk: c, idx: idx}
}

// Row is a borrowed view of one row across every column of a Chunk.
type Row struct {
	chunk Chunk
	idx   int
}

func (r Row) Get(col int) types.Value {
	return r.chunk.ArrayAt(col).Get(r.idx)
}

func (r Row) GetByIndexes(indexes []int) []types.Value {
	out := make([]types.Value, len(indexes))
	for i, c := range indexes {
		out[i] = r.Get(c)
	}
	return out
}

func (r Row) Values() []types.Value {
	out := make([]types.Value, r.chunk.NumColumns())
	for i := range out {
		out[i] = r.Get(i)
	}
	return out
}
