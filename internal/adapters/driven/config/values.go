// Package config converts values decoded from config files into the types
// settings are read as. TOML yields int64 and []any, JSON float64, and
// values set from Go code arrive with their native types.
package config

// AsString returns v when it is a string, otherwise "".
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsInt returns v as an int. Floats are truncated; other types give 0.
func AsInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// AsFloat returns v as a float64. Integers are converted; other types give 0.
func AsFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// AsBool returns v when it is a bool, otherwise false.
func AsBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// AsStringSlice returns the string elements of v. Non-string elements of
// a decoded array are skipped; a non-array gives nil.
func AsStringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
