package godm

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/godm-io/godm/codec"
)

// Kind identifies the shape of value a field descriptor accepts and the
// canonical Go type it converts into.
type Kind int

const (
	KindAny      Kind = iota // anything, unchanged
	KindString               // string
	KindInt                  // int64
	KindFloat                // float64
	KindBool                 // bool
	KindBytes                // []byte
	KindDateTime             // time.Time
	KindID                   // uuid.UUID
	KindDict                 // map[string]any, elements untyped
	KindList                 // []any, elements untyped
	KindEmbedded             // nested document with its own schema
	KindArray                // []any, elements typed by an element descriptor
)

var kindNames = map[Kind]string{
	KindAny:      "any",
	KindString:   "string",
	KindInt:      "int",
	KindFloat:    "float",
	KindBool:     "bool",
	KindBytes:    "bytes",
	KindDateTime: "datetime",
	KindID:       "id",
	KindDict:     "dict",
	KindList:     "list",
	KindEmbedded: "embedded",
	KindArray:    "array",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsList reports whether the kind addresses sequence-shaped data; the list
// update operators ($push, $pop, ...) require such a path.
func (k Kind) IsList() bool { return k == KindList || k == KindArray }

// IsNumeric reports whether the kind addresses numeric data ($inc, $mul).
func (k Kind) IsNumeric() bool { return k == KindInt || k == KindFloat }

// coerce converts a raw value into the kind's canonical Go type. nil is a
// legitimate value for every kind (a stored null) and passes through.
// Composite kinds (embedded, array) are handled by their resolvers, not here.
func (k Kind) coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindAny:
		return v, nil
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindInt:
		return coerceInt(v)
	case KindFloat:
		return coerceFloat(v)
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindBytes:
		switch t := v.(type) {
		case []byte:
			return t, nil
		case string:
			b, err := base64.StdEncoding.DecodeString(t)
			if err == nil {
				return b, nil
			}
		}
	case KindDateTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			ts, err := codec.ParseTime(t)
			if err == nil {
				return ts, nil
			}
		case int:
			return time.Unix(int64(t), 0).UTC(), nil
		case int64:
			return time.Unix(t, 0).UTC(), nil
		case float64:
			sec, frac := math.Modf(t)
			return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
		}
	case KindID:
		switch t := v.(type) {
		case uuid.UUID:
			return t, nil
		case string:
			id, err := uuid.Parse(t)
			if err == nil {
				return id, nil
			}
		case [16]byte:
			return uuid.UUID(t), nil
		}
	case KindDict:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
	case KindList:
		if s, ok := v.([]any); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, k)
}

func coerceInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), nil
		}
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	case float32:
		return integralFloat(float64(n))
	case float64:
		return integralFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		if f, err := n.Float64(); err == nil {
			return integralFloat(f)
		}
	}
	return nil, fmt.Errorf("cannot convert %T to int", v)
}

// integralFloat narrows a float carrying an integral value; JSON decoding
// turns every number into float64, so whole floats count as ints.
func integralFloat(f float64) (any, error) {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f), nil
	}
	return nil, fmt.Errorf("cannot convert %v to int", f)
}

func coerceFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to float", v)
}

// matches reports whether an already-converted value has the kind's
// canonical shape. Used by validate, which may see values that skipped
// conversion (clean data loaded from the store).
func (k Kind) matches(v any) bool {
	if v == nil {
		return true
	}
	switch k {
	case KindAny:
		return true
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case KindFloat:
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindBytes:
		_, ok := v.([]byte)
		return ok
	case KindDateTime:
		_, ok := v.(time.Time)
		return ok
	case KindID:
		_, ok := v.(uuid.UUID)
		return ok
	case KindDict:
		_, ok := v.(map[string]any)
		return ok
	case KindList, KindArray:
		_, ok := v.([]any)
		return ok
	case KindEmbedded:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}
