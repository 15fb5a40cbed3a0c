package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface representing the operand of a field predicate.
// Only Null, Bool, Int, Float, String, and Array implement this.
//
// Arrays never contain other arrays when produced by the filter value
// grammar, but the type does not forbid it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an explicit null operand.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool represents a boolean operand.
type Bool bool

func (Bool) value() {}

// Int represents an integral numeric operand.
type Int int64

func (Int) value() {}

// Float represents a non-integral numeric operand.
type Float float64

func (Float) value() {}

// String represents a textual operand.
type String string

func (String) value() {}

// Array represents a list operand (used by in/nin).
type Array []Value

func (Array) value() {}

// MarshalJSON implements json.Marshaler for Array using canonical encoding.
func (a Array) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(a)
}

// UnsupportedTypeError is returned by FromAny for Go values that have no
// Value representation (maps, structs, byte slices, channels...).
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported operand type: %s", e.Type)
}

// FromAny converts a decoded Go value (as produced by encoding/json, yaml.v3,
// url.Values or hand-built literals) into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(val), nil
	case float32:
		return Number(float64(val))
	case float64:
		return Number(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return Number(f)
	case []string:
		arr := make(Array, len(val))
		for i, s := range val {
			arr[i] = String(s)
		}
		return arr, nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	default:
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", v)}
	}
}

// Number converts a float into a Value. Integral floats (as produced by JSON
// decoding into any, or "1.0" typed into a query string) become Int
// so that 1 and 1.0 compare equal downstream.
func Number(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number: %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f)), nil
	}
	return Float(f), nil
}

// Native converts a Value back into plain Go types:
// nil, bool, int64, float64, string, or []any.
func Native(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values are structurally identical.
// Int and Float never compare equal to each other.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Truthy reports whether v survives list filtering: empty strings and
// false are dropped, while 0 and null are kept.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case String:
		return val != ""
	case Bool:
		return bool(val)
	default:
		return true
	}
}

// Text renders a scalar the way it would be typed into a query string.
// Arrays are rendered element-wise joined by commas.
func Text(v Value) string {
	switch val := v.(type) {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return string(val)
	case Array:
		out := ""
		for i, elem := range val {
			if i > 0 {
				out += ","
			}
			out += Text(elem)
		}
		return out
	default:
		return ""
	}
}
