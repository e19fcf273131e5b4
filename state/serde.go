package state

import (
	"encoding/binary"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/sql/types"
)

// ErrUnsupportedKind mirrors serde.rs's `todo!()` for any row kind
// beyond Int32 — the original's row (de)serializer never grew support
// for anything else.
var ErrUnsupportedKind = errors.NewKind("state serde only supports INT columns, got %s")

// SerializeRow encodes a row of Int32 values as fixed-width
// little-endian int32s, matching serde.rs's put_i32_le usage via
// bytes::BytesMut.
func SerializeRow(row []types.Value) ([]byte, error) {
	buf := make([]byte, 4*len(row))
	for i, v := range row {
		if v.Kind() != types.Int32 {
			return nil, ErrUnsupportedKind.New(v.Kind())
		}
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v.Int32()))
	}
	return buf, nil
}

// DeserializeRow is SerializeRow's inverse, given the number of Int32
// columns the row contains.
func DeserializeRow(data []byte, numColumns int) ([]types.Value, error) {
	row := make([]types.Value, numColumns)
	for i := 0; i < numColumns; i++ {
		n := int32(binary.LittleEndian.Uint32(data[i*4:]))
		row[i] = types.Int32Value(n)
	}
	return row, nil
}
