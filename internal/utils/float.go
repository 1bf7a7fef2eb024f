package utils

import (
	"math"
	"strconv"
	"strings"
)

// ToFloat64 converts various numeric types to float64.
// Returns the converted value and true if successful, or 0 and false if conversion fails.
// Supports: float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64
func ToFloat64(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// CoerceFloat converts a cell value into a series value.
// Empty strings, nil, unparseable text and non-finite numbers become NaN.
// Strings are trimmed before parsing; booleans map to 1 and 0.
func CoerceFloat(v interface{}) float64 {
	var f float64

	switch val := v.(type) {
	case nil:
		return math.NaN()
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return math.NaN()
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		f = parsed
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		converted, ok := ToFloat64(v)
		if !ok {
			return math.NaN()
		}
		f = converted
	}

	if math.IsInf(f, 0) || math.IsNaN(f) {
		return math.NaN()
	}
	return f
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Clamp bounds i to [lo, hi].
func Clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
