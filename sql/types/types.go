// Package types implements the scalar value and data type model: a
// closed kind lattice with a union (widening) operation, and the tagged
// scalar value sum that column arrays are built from.
package types

import (
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrTypeMismatch is raised whenever two values or types cannot be
// unified or combined under the widening lattice.
var ErrTypeMismatch = errors.NewKind("type mismatch: %s and %s")

// Kind enumerates the scalar type tags. Order matters: it defines the
// widening lattice below (a kind only ever widens to a later kind).
type Kind int

const (
	Null Kind = iota
	Bool
	Int16
	Int32
	Int64
	Float64
	Decimal
	Date
	Timestamp
	TimestampTz
	Interval
	String
	Blob
	Struct
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "NULL"
	case Bool:
		return "BOOLEAN"
	case Int16:
		return "SMALLINT"
	case Int32:
		return "INT"
	case Int64:
		return "BIGINT"
	case Float64:
		return "DOUBLE"
	case Decimal:
		return "DECIMAL"
	case Date:
		return "DATE"
	case Timestamp:
		return "TIMESTAMP"
	case TimestampTz:
		return "TIMESTAMP WITH TIME ZONE"
	case Interval:
		return "INTERVAL"
	case String:
		return "STRING"
	case Blob:
		return "BLOB"
	case Struct:
		return "STRUCT"
	default:
		return "UNKNOWN"
	}
}

// IsNumber reports whether the kind participates in arithmetic.
func (k Kind) IsNumber() bool {
	switch k {
	case Int16, Int32, Int64, Float64, Decimal:
		return true
	default:
		return false
	}
}

// DataType pairs a Kind with nullability. Struct members additionally
// carry their field types.
type DataType struct {
	Kind     Kind
	Nullable bool
	Fields   []DataType // only meaningful when Kind == Struct
}

func New(kind Kind, nullable bool) DataType {
	return DataType{Kind: kind, Nullable: nullable}
}

func NewStruct(fields []DataType, nullable bool) DataType {
	return DataType{Kind: Struct, Nullable: nullable, Fields: fields}
}

func (t DataType) String() string {
	if t.Kind != Struct {
		return t.Kind.String()
	}
	s := "STRUCT("
	for i, f := range t.Fields {
		if i > 0 {
			s += ", "
		}
		s += f.Kind.String()
	}
	return s + ")"
}

// widensTo reports whether kind a widens to kind b; this table encodes
// the lattice edges from rulink's DataTypeKind::union, which is not a
// total order (e.g. Date only widens to Date or String, not through
// Int/Float).
func widensTo(a, b Kind) bool {
	if a == b {
		// Struct pairs are unified field by field in Union instead.
		return a != Struct
	}
	switch a {
	case Null:
		return true
	case Bool:
		switch b {
		case Int32, Int64, Float64, Decimal, String:
			return true
		}
	case Int32:
		switch b {
		case Int64, Float64, Decimal, String:
			return true
		}
	case Int64:
		switch b {
		case Float64, Decimal, String:
			return true
		}
	case Float64:
		switch b {
		case Decimal, String:
			return true
		}
	case Decimal:
		return b == String
	case Date:
		return b == String
	case Interval:
		return b == String
	case String:
		return b == Blob
	}
	return false
}

// Union returns the minimum type compatible with both t and other, or
// an error if the two kinds do not unify. Struct unifies pointwise and
// requires equal arity.
func (t DataType) Union(other DataType) (DataType, error) {
	a, b := t, other
	if !widensTo(a.Kind, b.Kind) {
		if widensTo(b.Kind, a.Kind) {
			a, b = b, a
		} else if a.Kind == Struct && b.Kind == Struct {
			if len(a.Fields) != len(b.Fields) {
				return DataType{}, ErrTypeMismatch.New(a, b)
			}
			fields := make([]DataType, len(a.Fields))
			for i := range a.Fields {
				u, err := a.Fields[i].Union(b.Fields[i])
				if err != nil {
					return DataType{}, err
				}
				fields[i] = u
			}
			return NewStruct(fields, a.Nullable || b.Nullable), nil
		} else {
			return DataType{}, ErrTypeMismatch.New(a, b)
		}
	}
	return DataType{Kind: b.Kind, Nullable: a.Nullable || b.Nullable, Fields: b.Fields}, nil
}

// Value is a tagged scalar: Null, Bool, Int32, or String. This matches
// the SQL surface's actual value set (spec.md §3); the wider Kind
// lattice above exists so DataType.Union stays total even though only
// these four kinds are ever produced by a value.
type Value struct {
	kind Kind
	b    bool
	i    int32
	s    string
}

func NullValue() Value          { return Value{kind: Null} }
func BoolValue(v bool) Value    { return Value{kind: Bool, b: v} }
func Int32Value(v int32) Value  { return Value{kind: Int32, i: v} }
func StringValue(v string) Value { return Value{kind: String, s: v} }

func (v Value) IsNull() bool   { return v.kind == Null }
func (v Value) Kind() Kind     { return v.kind }
func (v Value) Bool() bool     { return v.b }
func (v Value) Int32() int32   { return v.i }
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "NULL"
	case Bool:
		return fmt.Sprintf("%t", v.b)
	case Int32:
		return fmt.Sprintf("%d", v.i)
	case String:
		return v.s
	default:
		return ""
	}
}

// DataType reports the inferred type of the value. A Null value reports
// Kind Null, nullable — see DESIGN.md Open Question 5 for why this
// deliberately diverges from the original's Null-as-String quirk.
func (v Value) DataType() DataType {
	switch v.kind {
	case Null:
		return New(Null, true)
	case Bool:
		return New(Bool, false)
	case Int32:
		return New(Int32, false)
	default:
		return New(String, false)
	}
}

// Add implements the additive arithmetic used by the Sum aggregate:
// Null is the identity, Int32+Int32 adds, anything else is a type
// error.
func Add(a, b Value) (Value, error) {
	if a.IsNull() {
		return b, nil
	}
	if b.IsNull() {
		return a, nil
	}
	if a.kind == Int32 && b.kind == Int32 {
		return Int32Value(a.i + b.i), nil
	}
	return Value{}, ErrTypeMismatch.New(a.kind, b.kind)
}

// Or returns a if it is non-null, else b (COALESCE-style resolution).
func Or(a, b Value) Value {
	if a.IsNull() {
		return b
	}
	return a
}
