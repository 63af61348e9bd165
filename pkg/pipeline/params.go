package pipeline

import (
	"fmt"
	"strings"
)

// Params holds the resolved, typed parameters of a single stage. It is seeded
// from a copy of the global parameters, overlaid with the stage's own values
// and finally filled with stage-kind defaults. A Params is rebuilt fresh for
// every stage and discarded when the stage finishes.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// setDefault stores value only when key is absent, so defaults never
// overwrite an explicitly configured parameter.
func (p Params) setDefault(key string, value any) {
	if !p.Has(key) {
		p[key] = value
	}
}

// Str formats the value under key for a collaborator flag. Lists render in
// PIPELINE syntax ([a,b,c]); a missing key renders as the empty string.
func (p Params) Str(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	return formatValue(v)
}

// Bool reports the truthiness of the value under key. Mirroring the original
// loosely-typed configuration semantics, a non-empty string counts as true
// regardless of its content and a missing key counts as false.
func (p Params) Bool(key string) bool {
	switch v := p[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

// Int returns the value under key as an integer, or 0 when it is absent or
// not numeric.
func (p Params) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprint(val)
	}
}
