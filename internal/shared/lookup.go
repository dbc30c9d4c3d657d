package shared

import (
	"strconv"
	"strings"
)

// Provider payloads are decoded into map[string]any and read through these
// helpers. Paths are dot separated; numeric segments index into arrays.

// Lookup returns the value at path or nil.
func Lookup(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		switch obj := cur.(type) {
		case map[string]any:
			v, ok := obj[part]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(obj) {
				return nil
			}
			cur = obj[i]
		default:
			return nil
		}
	}
	return cur
}

// Map returns the object at path or nil.
func Map(m map[string]any, path string) map[string]any {
	v, _ := Lookup(m, path).(map[string]any)
	return v
}

// Slice returns the array at path or nil.
func Slice(m map[string]any, path string) []any {
	v, _ := Lookup(m, path).([]any)
	return v
}

// Str returns the first non-empty string found under paths. Numbers are
// formatted, since the provider is not consistent about ids.
func Str(m map[string]any, paths ...string) string {
	for _, p := range paths {
		switch v := Lookup(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Float reads a number from the first path that holds one (float64/int/string like "8,0").
func Float(m map[string]any, paths ...string) (float64, bool) {
	for _, k := range paths {
		switch v := Lookup(m, k).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// FloatOr is Float with a default.
func FloatOr(m map[string]any, def float64, paths ...string) float64 {
	if f, ok := Float(m, paths...); ok {
		return f
	}
	return def
}

// Int64 reads an integer from the first path that holds one.
func Int64(m map[string]any, paths ...string) (int64, bool) {
	for _, k := range paths {
		switch v := Lookup(m, k).(type) {
		case float64:
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// IntOr is Int64 narrowed to int, with a default.
func IntOr(m map[string]any, def int, paths ...string) int {
	if n, ok := Int64(m, paths...); ok {
		return int(n)
	}
	return def
}

// Bool accepts JSON booleans as well as "true"/"false" strings and 0/1.
func Bool(m map[string]any, paths ...string) bool {
	for _, k := range paths {
		switch v := Lookup(m, k).(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		case float64:
			return v != 0
		}
	}
	return false
}

// Strings accepts arrays of strings or of {url|src|name} objects.
func Strings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		raw, ok := Lookup(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if s := Str(t, "url", "src", "name"); s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
