package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Attributes is a loosely typed JSON object as it arrives from the design
// editor. Numbers may be encoded as strings, booleans as numbers, and
// missing values as null, so every getter coerces instead of failing.
type Attributes map[string]interface{}

// String extracts a string attribute, converting scalars if needed
func (a Attributes) String(key string) (string, bool) {
	val, ok := a[key]
	if !ok || val == nil {
		return "", false
	}

	switch v := val.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// Float extracts a finite float64 attribute, converting if needed
func (a Attributes) Float(key string) (float64, bool) {
	val, ok := a[key]
	if !ok || val == nil {
		return 0, false
	}

	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Bool extracts a bool attribute. Non-zero numbers and "true" count as true.
func (a Attributes) Bool(key string) (bool, bool) {
	val, ok := a[key]
	if !ok || val == nil {
		return false, false
	}

	switch v := val.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// Strings extracts a list of strings, skipping non-scalar entries
func (a Attributes) Strings(key string) ([]string, bool) {
	val, ok := a[key]
	if !ok || val == nil {
		return nil, false
	}

	list, ok := val.([]interface{})
	if !ok {
		if s, ok := val.([]string); ok {
			return s, true
		}
		return nil, false
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return out, true
}

// List extracts a raw JSON array
func (a Attributes) List(key string) ([]interface{}, bool) {
	val, ok := a[key]
	if !ok || val == nil {
		return nil, false
	}
	list, ok := val.([]interface{})
	return list, ok
}

// toFloat converts a single JSON scalar to float64
func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
