package config

import (
	"fmt"
	"strconv"
)

// Kwargs holds free-form model arguments. Values decoded from JSON are
// float64, values from YAML or env overrides may be int or string.
type Kwargs map[string]any

// Int returns the integer value of key, or def when absent or not numeric.
func (k Kwargs) Int(key string, def int) int {
	switch v := k[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Float returns the float value of key, or def when absent or not numeric.
func (k Kwargs) Float(key string, def float64) float64 {
	switch v := k[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// OptionalFloat reports the float value of key and whether it was set.
func (k Kwargs) OptionalFloat(key string) (float64, bool) {
	if _, ok := k[key]; !ok {
		return 0, false
	}
	v := k.Float(key, 0)
	return v, true
}

// String returns the string form of key, or def when absent.
func (k Kwargs) String(key, def string) string {
	v, ok := k[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
