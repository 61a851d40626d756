package intake

import (
	"encoding/json"
	"math"
)

// Profile maps registry fields to sanitized values. Values are nil, string,
// float64, bool or []string.
type Profile map[FieldName]any

// Map returns the profile as a plain map, e.g. for JSON encoding or for
// feeding it back through Sanitize.
func (p Profile) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[string(k)] = v
	}
	return out
}

// Sanitize keeps the registry keys of raw whose values have a supported
// shape and drops everything else. It never fails.
func (r *Registry) Sanitize(raw map[string]any) Profile {
	out := make(Profile)
	for key, value := range raw {
		field, ok := r.Lookup(key)
		if !ok {
			continue
		}
		v, kind, ok := normalize(value)
		if !ok {
			continue
		}
		if v != nil && !field.accepts(kind) {
			continue
		}
		out[field.Name] = v
	}
	return out
}

// IsPresent reports whether v counts as an answer: non-nil and not "".
// Empty lists are present.
func IsPresent(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// Merge overlays extracted on current. Values are replaced whole.
func Merge(current, extracted Profile) Profile {
	out := make(Profile, len(current)+len(extracted))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range extracted {
		out[k] = v
	}
	return out
}

func normalize(value any) (any, Kind, bool) {
	switch v := value.(type) {
	case nil:
		return nil, 0, true
	case string:
		return v, KindString, true
	case bool:
		return v, KindBool, true
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), KindNumber, true
	case int8:
		return float64(v), KindNumber, true
	case int16:
		return float64(v), KindNumber, true
	case int32:
		return float64(v), KindNumber, true
	case int64:
		return float64(v), KindNumber, true
	case uint:
		return float64(v), KindNumber, true
	case uint8:
		return float64(v), KindNumber, true
	case uint16:
		return float64(v), KindNumber, true
	case uint32:
		return float64(v), KindNumber, true
	case uint64:
		return float64(v), KindNumber, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, 0, false
		}
		return finite(f)
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, KindList, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, 0, false
			}
			out = append(out, s)
		}
		return out, KindList, true
	}
	return nil, 0, false
}

// NaN and Inf cannot be encoded as JSON.
func finite(f float64) (any, Kind, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, 0, false
	}
	return f, KindNumber, true
}
