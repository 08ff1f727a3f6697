package provider

import (
	"math"
	"strconv"
	"time"
)

// Parameter names the seeder derives from a field definition. Any other
// key in a field's params is passed through untouched.
const (
	ParamType    = "type"
	ParamField   = "field"
	ParamLength  = "length"
	ParamMin     = "min"
	ParamMax     = "max"
	ParamPattern = "pattern"
	ParamFrom    = "from"
	ParamTo      = "to"
)

// Params carries rule arguments. Values typically come from YAML or JSON,
// so the accessors accept any numeric representation.
type Params map[string]any

// Has reports whether key is set to a non-nil value.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the string at key, or def.
func (p Params) String(key, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

// Int returns the integer at key, or def.
func (p Params) Int(key string, def int64) int64 {
	switch v := p[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	case float64:
		return int64(math.Round(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// Float returns the number at key, or def.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Time returns the time at key, parsed as RFC 3339 or YYYY-MM-DD, or def.
func (p Params) Time(key string, def time.Time) time.Time {
	switch v := p[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	}
	return def
}
