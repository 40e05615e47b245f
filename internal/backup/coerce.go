package backup

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Total coercers over decoded JSON objects. Each one returns a usable value
// for any input; a key that is missing or holds the wrong kind of value
// yields the fallback.

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := stringField(m, key); ok {
		return s
	}
	return fallback
}

func boolOr(m map[string]any, key string, fallback bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}

// intOr parses numbers, numeric strings, booleans and null the lenient way a
// spreadsheet or hand-edited file would expect, rounding halves up.
func intOr(m map[string]any, key string, fallback int64) int64 {
	v, present := m[key]
	if !present {
		return fallback
	}
	n, ok := toNumber(v)
	if !ok {
		return fallback
	}
	r := math.Floor(n + 0.5)
	// float64(math.MaxInt64) is 2^63, one past the largest int64.
	if r >= math.MaxInt64 || r < math.MinInt64 {
		return fallback
	}
	return int64(r)
}

// optionalFloat keeps only genuine JSON numbers.
func optionalFloat(m map[string]any, key string) *float64 {
	f, ok := m[key].(float64)
	if !ok {
		return nil
	}
	return &f
}

// timeLayouts are tried in order; a bare date is midnight UTC.
var timeLayouts = []string{time.RFC3339Nano, time.DateOnly}

func timeOr(m map[string]any, key string, fallback time.Time) time.Time {
	s, ok := stringField(m, key)
	if !ok {
		return fallback
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case nil:
		return 0, true
	case float64:
		n = x
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
