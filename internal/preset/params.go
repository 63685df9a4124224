package preset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Params is a flat parameter set for one operation. Values are scalars:
// float64, bool or string.
type Params map[string]any

// Overrides maps an operation name to caller-supplied parameter values.
type Overrides map[string]Params

// Clone returns a shallow copy. Values are scalars, so the copy is independent.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with every key of over applied on top.
func (p Params) Merge(over Params) Params {
	out := p.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Float returns the numeric value for key, or def when absent or not numeric.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

// Bool returns the boolean value for key, or def when absent or not a boolean.
func (p Params) Bool(key string, def bool) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// String returns the string value for key, or def when absent.
func (p Params) String(key string, def string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// normalize converts integer values to float64 so that parameter sets read
// from YAML, JSON or DynamoDB compare equal.
func (p Params) normalize() Params {
	out := make(Params, len(p))
	for k, v := range p {
		switch v.(type) {
		case int, int32, int64, uint64, float32, json.Number:
			f, _ := toFloat(v)
			out[k] = f
		default:
			out[k] = v
		}
	}
	return out
}

// ParseAssignment parses a command-line override of the form
// "operation.key=value" and stores it in o. Values are typed as bool, then
// number, then string.
func (o Overrides) ParseAssignment(s string) error {
	lhs, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("override %q: expected operation.key=value", s)
	}
	op, key, ok := strings.Cut(strings.TrimSpace(lhs), ".")
	if !ok || op == "" || key == "" {
		return fmt.Errorf("override %q: expected operation.key=value", s)
	}
	value = strings.TrimSpace(value)

	var typed any = value
	switch strings.ToLower(value) {
	case "true":
		typed = true
	case "false":
		typed = false
	default:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			typed = f
		}
	}

	if o[op] == nil {
		o[op] = Params{}
	}
	o[op][key] = typed
	return nil
}

// Normalize returns a copy with every parameter set normalized.
func (o Overrides) Normalize() Overrides {
	out := make(Overrides, len(o))
	for op, p := range o {
		out[op] = p.normalize()
	}
	return out
}
