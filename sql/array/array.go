// Package array implements the engine's columnar data model: fixed- and
// variable-width column arrays with a parallel null-validity vector, the
// array builders that produce them, and the chunk/chunk-builder types
// that group arrays into row batches.
package array

import (
	"fmt"

	"github.com/streamql/streamql/sql/types"
)

// Array is the read-only, immutable-once-built column representation.
// Bool and Int32 are fixed-width; Utf8 is variable-width.
type Array interface {
	Get(idx int) types.Value
	Len() int
}

// BoolArray is a fixed-width column of nullable booleans.
type BoolArray struct {
	valid []bool
	data  []bool
}

func (a *BoolArray) Get(idx int) types.Value {
	if !a.valid[idx] {
		return types.NullValue()
	}
	return types.BoolValue(a.data[idx])
}

func (a *BoolArray) Len() int { return len(a.valid) }

// Int32Array is a fixed-width column of nullable int32s.
type Int32Array struct {
	valid []bool
	data  []int32
}

func (a *Int32Array) Get(idx int) types.Value {
	if !a.valid[idx] {
		return types.NullValue()
	}
	return types.Int32Value(a.data[idx])
}

func (a *Int32Array) Len() int { return len(a.valid) }

// Utf8Array is a variable-width column: a validity bitvector, a
// monotonic offsets slice of length len(valid)+1 with offsets[0]==0,
// and a flat byte buffer. Row i's bytes are data[offsets[i]:offsets[i+1]].
type Utf8Array struct {
	valid   []bool
	offsets []int
	data    []byte
}

func (a *Utf8Array) Get(idx int) types.Value {
	if !a.valid[idx] {
		return types.NullValue()
	}
	return types.StringValue(string(a.data[a.offsets[idx]:a.offsets[idx+1]]))
}

func (a *Utf8Array) Len() int { return len(a.valid) }

// Builder is the append-only counterpart of Array, dispatched by Kind
// the way the engine's ArrayBuilderImpl dispatches in the original.
type Builder struct {
	kind types.Kind

	boolValid []bool
	boolData  []bool

	i32Valid []bool
	i32Data  []int32

	strValid   []bool
	strOffsets []int
	strData    []byte
}

// NewBuilder constructs a builder for the given data type's kind,
// pre-sized to capacity. Only Bool, Int32, and String are supported —
// matching the SQL surface's actual value set.
func NewBuilder(kind types.Kind, capacity int) *Builder {
	b := &Builder{kind: kind}
	switch kind {
	case types.Bool:
		b.boolValid = make([]bool, 0, capacity)
		b.boolData = make([]bool, 0, capacity)
	case types.Int32:
		b.i32Valid = make([]bool, 0, capacity)
		b.i32Data = make([]int32, 0, capacity)
	case types.String:
		b.strValid = make([]bool, 0, capacity)
		b.strOffsets = make([]int, 1, capacity+1)
		b.strOffsets[0] = 0
		b.strData = make([]byte, 0, capacity)
	default:
		panic(fmt.Sprintf("array: unsupported builder kind %s", kind))
	}
	return b
}

// Push appends v, which must be Null or match the builder's kind.
// A kind mismatch is a programmer error and panics.
func (b *Builder) Push(v types.Value) {
	switch b.kind {
	case types.Bool:
		if v.IsNull() {
			b.boolValid = append(b.boolValid, false)
			b.boolData = append(b.boolData, false)
			return
		}
		if v.Kind() != types.Bool {
			panic("array: push type mismatch")
		}
		b.boolValid = append(b.boolValid, true)
		b.boolData = append(b.boolData, v.Bool())
	case types.Int32:
		if v.IsNull() {
			b.i32Valid = append(b.i32Valid, false)
			b.i32Data = append(b.i32Data, 0)
			return
		}
		if v.Kind() != types.Int32 {
			panic("array: push type mismatch")
		}
		b.i32Valid = append(b.i32Valid, true)
		b.i32Data = append(b.i32Data, v.Int32())
	case types.String:
		if v.IsNull() {
			b.strValid = append(b.strValid, false)
			b.strOffsets = append(b.strOffsets, len(b.strData))
			return
		}
		if v.Kind() != types.String {
			panic("array: push type mismatch")
		}
		b.strValid = append(b.strValid, true)
		b.strData = append(b.strData, v.String()...)
		b.strOffsets = append(b.strOffsets, len(b.strData))
	default:
		panic("array: push type mismatch")
	}
}

// PushN appends v n times.
func (b *Builder) PushN(n int, v types.Value) {
	for i := 0; i < n; i++ {
		b.Push(v)
	}
}

// PushString parses an external (e.g. CSV) field: an empty string means
// null, matching the original connector contract.
func (b *Builder) PushString(s string) error {
	if s == "" {
		b.Push(types.NullValue())
		return nil
	}
	switch b.kind {
	case types.String:
		b.Push(types.StringValue(s))
		return nil
	case types.Int32:
		n, err := castToInt32(s)
		if err != nil {
			return err
		}
		b.Push(types.Int32Value(n))
		return nil
	case types.Bool:
		v, err := castToBool(s)
		if err != nil {
			return err
		}
		b.Push(types.BoolValue(v))
		return nil
	default:
		panic("array: push type mismatch")
	}
}

// Append concatenates another finished array of the same kind onto the
// builder, offsetting Utf8 offsets by the current data length.
func (b *Builder) Append(a Array) {
	switch arr := a.(type) {
	case *BoolArray:
		if b.kind != types.Bool {
			panic("array: append type mismatch")
		}
		b.boolValid = append(b.boolValid, arr.valid...)
		b.boolData = append(b.boolData, arr.data...)
	case *Int32Array:
		if b.kind != types.Int32 {
			panic("array: append type mismatch")
		}
		b.i32Valid = append(b.i32Valid, arr.valid...)
		b.i32Data = append(b.i32Data, arr.data...)
	case *Utf8Array:
		if b.kind != types.String {
			panic("array: append type mismatch")
		}
		b.strValid = append(b.strValid, arr.valid...)
		base := len(b.strData)
		b.strData = append(b.strData, arr.data...)
		for _, off := range arr.offsets[1:] {
			b.strOffsets = append(b.strOffsets, off+base)
		}
	default:
		panic("array: append type mismatch")
	}
}

// Finish moves the accumulated state out into a new Array, leaving the
// builder empty (offsets reset to [0] for Utf8).
func (b *Builder) Finish() Array {
	switch b.kind {
	case types.Bool:
		a := &BoolArray{valid: b.boolValid, data: b.boolData}
		b.boolValid, b.boolData = nil, nil
		return a
	case types.Int32:
		a := &Int32Array{valid: b.i32Valid, data: b.i32Data}
		b.i32Valid, b.i32Data = nil, nil
		return a
	case types.String:
		a := &Utf8Array{valid: b.strValid, offsets: b.strOffsets, data: b.strData}
		b.strValid, b.strData = nil, nil
		b.strOffsets = []int{0}
		return a
	default:
		panic("array: finish on empty builder")
	}
}

// Take is the reusable variant of Finish: it extracts the built array
// and resets internal storage for further pushes, without discarding
// the builder itself.
func (b *Builder) Take() Array {
	return b.Finish()
}

// Reserve grows underlying storage capacity without changing length.
func (b *Builder) Reserve(capacity int) {
	switch b.kind {
	case types.Bool:
		if cap(b.boolValid)-len(b.boolValid) < capacity {
			grown := make([]bool, len(b.boolValid), len(b.boolValid)+capacity)
			copy(grown, b.boolValid)
			b.boolValid = grown
		}
	case types.Int32:
		if cap(b.i32Valid)-len(b.i32Valid) < capacity {
			grown := make([]bool, len(b.i32Valid), len(b.i32Valid)+capacity)
			copy(grown, b.i32Valid)
			b.i32Valid = grown
		}
	case types.String:
		if cap(b.strValid)-len(b.strValid) < capacity {
			grown := make([]bool, len(b.strValid), len(b.strValid)+capacity)
			copy(grown, b.strValid)
			b.strValid = grown
		}
	}
}

func castToInt32(s string) (int32, error) {
	return castStrToInt32(s)
}

func castToBool(s string) (bool, error) {
	return castStrToBool(s)
}
