package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringArg returns the trimmed string argument name, or "" when it is
// absent or not a string.
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// IntArg returns the integer argument name, or def when it is absent. JSON
// numbers arrive as float64; numeric strings are accepted too. Fractional
// or non-numeric values are an error.
func IntArg(args map[string]any, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// StringListArg returns the list argument name. It accepts a JSON array of
// strings or a single comma-separated string. Blank entries are dropped.
func StringListArg(args map[string]any, name string) ([]string, error) {
	var raw []string
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain only strings", name)
			}
			raw = append(raw, s)
		}
	case []string:
		raw = v
	case string:
		raw = strings.Split(v, ",")
	default:
		return nil, fmt.Errorf("%s must be a list of strings", name)
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
