package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a sealed interface over the values a live calculation can produce.
// Only Null, Float, Int, Bool, String, Array and HaloRef implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null is the missing-data sentinel. Evaluation never raises for absent data;
// it produces Null in the affected row instead.
type Null struct{}

func (Null) value() {}

// Float is a scalar floating point value. NaN is allowed and means "unknown".
type Float float64

func (Float) value() {}

// Int is an integer value.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// String is a text value.
type String string

func (String) value() {}

// Array is a one-dimensional numeric array, e.g. a stored histogram chunk.
type Array []float64

func (Array) value() {}

// HaloRef points at a halo by its catalog identifier.
// Kept as a bare int64 so ir does not depend on the graph package.
type HaloRef int64

func (HaloRef) value() {}

// Kind returns a short stable name for the variant of v.
// Used by the store to tag persisted values and by error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Array:
		return "array"
	case HaloRef:
		return "halo"
	default:
		return fmt.Sprintf("unknown(%T)", v)
	}
}

// IsNull reports whether v is the null sentinel (or a nil interface).
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	default:
		return false
	}
}

// IsMissing reports whether v carries no usable data: null, or a NaN float.
// This is the masking rule used when folding multi-valued results.
func IsMissing(v Value) bool {
	if IsNull(v) {
		return true
	}
	if f, ok := v.(Float); ok {
		return math.IsNaN(float64(f))
	}
	return false
}

// AsFloat converts numeric scalars (and booleans) to float64.
// Returns false for null, strings, arrays and halo references.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Float:
		return float64(val), true
	case Int:
		return float64(val), true
	case Bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// FromFloat wraps a float64, mapping nothing: NaN stays NaN.
func FromFloat(f float64) Value {
	return Float(f)
}

// Equal compares two values structurally. NaN equals NaN here so that
// test expectations over masked data stay expressible.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Float:
		bv, ok := b.(Float)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(Float(av[i]), Float(bv[i])) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Format renders a value for human-readable output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "None"
	case Float:
		return formatFloat(float64(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Bool:
		if val {
			return "True"
		}
		return "False"
	case String:
		return string(val)
	case Array:
		parts := make([]string, len(val))
		for i, f := range val {
			parts[i] = formatFloat(f)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case HaloRef:
		return fmt.Sprintf("halo#%d", int64(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToJSON converts a value to a JSON-encodable Go value.
// Non-finite floats have no JSON form and become null.
func ToJSON(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Float:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil
		}
		return float64(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, f := range val {
			out[i] = ToJSON(Float(f))
		}
		return out
	case HaloRef:
		return map[string]any{"halo": int64(val)}
	default:
		return nil
	}
}

// MarshalValue marshals a value to JSON bytes using ToJSON.
func MarshalValue(v Value) ([]byte, error) {
	return json.Marshal(ToJSON(v))
}

// FromAny converts a decoded YAML/JSON scalar or list into a Value.
// Lists must be numeric and become Array; nil becomes Null.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case string:
		if strings.EqualFold(val, "nan") {
			return Float(math.NaN()), nil
		}
		return String(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Float(f), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			f, ok := AsFloat(ev)
			if !ok {
				if !IsNull(ev) {
					return nil, fmt.Errorf("array[%d]: %s is not numeric", i, Kind(ev))
				}
				f = math.NaN()
			}
			arr[i] = f
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
