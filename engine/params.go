package engine

import (
	"reflect"
	"strings"

	"github.com/vegasq/tabq/table"
)

// params wraps a step's parameter map with typed accessors. Every accessor
// reports a configuration error rather than panicking on a wrong shape.
type params map[string]interface{}

func (p params) str(key string) (string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return "", configError("missing parameter %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", configError("parameter %q must be a string, got %T", key, raw)
	}
	if strings.TrimSpace(s) == "" {
		return "", configError("parameter %q is empty", key)
	}
	return s, nil
}

// strList accepts a list of strings or a single string.
func (p params) strList(key string) ([]string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, configError("missing parameter %q", key)
	}
	if s, ok := raw.(string); ok {
		return []string{s}, nil
	}
	items, ok := toList(raw)
	if !ok {
		return nil, configError("parameter %q must be a list, got %T", key, raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, configError("parameter %q must contain strings, got %T", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// strMap accepts a mapping of strings to strings.
func (p params) strMap(key string) (map[string]string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, configError("missing parameter %q", key)
	}
	switch m := raw.(type) {
	case map[string]string:
		return m, nil
	case map[string]interface{}:
		out := make(map[string]string, len(m))
		for k, v := range m {
			s, ok := v.(string)
			if !ok || s == "" {
				return nil, configError("parameter %q: target for %q must be a non-empty string", key, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, configError("parameter %q must be a mapping, got %T", key, raw)
	}
}

// boolean returns the value of key, or def when it is absent.
func (p params) boolean(key string, def bool) (bool, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		if b, ok := table.ToBool(v).(bool); ok {
			return b, nil
		}
	}
	return false, configError("parameter %q must be a boolean, got %v", key, raw)
}

// toList converts any slice or array (other than []byte) into []interface{}
// with normalized elements.
func toList(v interface{}) ([]interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = table.Normalize(item)
		}
		return out, true
	}
	if _, isBytes := v.([]byte); isBytes || v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = table.Normalize(rv.Index(i).Interface())
	}
	return out, true
}
