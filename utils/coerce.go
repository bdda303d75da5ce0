package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceInt turns a loosely typed form value into an int, returning 0 when
// the value cannot be parsed.
func CoerceInt(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return CoerceInt(f)
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return CoerceInt(f)
		}
		return 0
	default:
		return 0
	}
}
