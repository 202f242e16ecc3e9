package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/roach88/halodb/internal/ir"
)

// Property kinds as stored in properties.kind.
const (
	kindFloat  = 1
	kindInt    = 2
	kindBool   = 3
	kindString = 4
	kindArray  = 5
	kindHalo   = 6
)

// storedValue is one properties row's data columns.
type storedValue struct {
	kind    int
	num     sql.NullFloat64
	integer sql.NullInt64
	text    sql.NullString
	blob    []byte
}

// marshalValue converts a non-null value to its stored columns.
// SQLite has no NaN; a NaN float is stored as a NULL real.
func marshalValue(v ir.Value) (storedValue, error) {
	switch val := v.(type) {
	case ir.Float:
		f := float64(val)
		return storedValue{kind: kindFloat, num: sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f)}}, nil
	case ir.Int:
		return storedValue{kind: kindInt, integer: sql.NullInt64{Int64: int64(val), Valid: true}}, nil
	case ir.Bool:
		var b int64
		if val {
			b = 1
		}
		return storedValue{kind: kindBool, integer: sql.NullInt64{Int64: b, Valid: true}}, nil
	case ir.String:
		return storedValue{kind: kindString, text: sql.NullString{String: string(val), Valid: true}}, nil
	case ir.Array:
		return storedValue{kind: kindArray, blob: marshalArray(val)}, nil
	case ir.HaloRef:
		return storedValue{kind: kindHalo, integer: sql.NullInt64{Int64: int64(val), Valid: true}}, nil
	default:
		return storedValue{}, fmt.Errorf("marshal value: unsupported type %T", v)
	}
}

// unmarshalValue rebuilds a value from its stored columns.
func unmarshalValue(sv storedValue) (ir.Value, error) {
	switch sv.kind {
	case kindFloat:
		if !sv.num.Valid {
			return ir.Float(math.NaN()), nil
		}
		return ir.Float(sv.num.Float64), nil
	case kindInt:
		return ir.Int(sv.integer.Int64), nil
	case kindBool:
		return ir.Bool(sv.integer.Int64 != 0), nil
	case kindString:
		return ir.String(sv.text.String), nil
	case kindArray:
		return unmarshalArray(sv.blob)
	case kindHalo:
		return ir.HaloRef(sv.integer.Int64), nil
	default:
		return nil, fmt.Errorf("unmarshal value: unknown kind %d", sv.kind)
	}
}

// marshalArray packs values as little-endian IEEE 754 doubles.
func marshalArray(a ir.Array) []byte {
	buf := make([]byte, 8*len(a))
	for i, f := range a {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}
	return buf
}

func unmarshalArray(data []byte) (ir.Array, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("unmarshal array: %d bytes is not a whole number of float64s", len(data))
	}
	a := make(ir.Array, len(data)/8)
	for i := range a {
		a[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return a, nil
}

// unmarshalWeight maps a NULL weight (stored NaN) back to NaN.
func unmarshalWeight(w sql.NullFloat64) float64 {
	if !w.Valid {
		return math.NaN()
	}
	return w.Float64
}

// marshalWeight maps NaN to NULL.
func marshalWeight(w float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: w, Valid: !math.IsNaN(w)}
}
