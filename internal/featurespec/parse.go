package featurespec

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"featurebench/internal/example"
)

// Parse decodes and validates a spec document. Every problem found is
// reported; each one wraps ErrInvalid.
func Parse(data []byte, format Format) (Spec, error) {
	if format == FormatYAML {
		var err error
		if data, err = yamlToJSON(data); err != nil {
			return Spec{}, invalid("yaml: %v", err)
		}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Spec{}, invalid("document is not an object: %v", err)
	}

	var errs []error
	remove, err := parseRemove(doc)
	if err != nil {
		errs = append(errs, err)
	}
	enrich, err := parseEnrich(doc)
	if err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return Spec{}, err
	}
	return Spec{remove: remove, enrich: enrich}, nil
}

func parseRemove(doc map[string]json.RawMessage) (example.NameSet, error) {
	raw, ok := doc["remove"]
	if !ok || isNull(raw) {
		return nil, invalid("missing key %q", "remove")
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, invalid("remove %s is not a list of feature names", clip(raw))
	}
	return example.NewNameSet(names...), nil
}

func parseEnrich(doc map[string]json.RawMessage) (map[string]Value, error) {
	raw, ok := doc["enrich"]
	if !ok || isNull(raw) {
		return nil, invalid("missing key %q", "enrich")
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, invalid("enrich %s is not an object", clip(raw))
	}

	out := make(map[string]Value, len(entries))
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		v, err := parseEntry(entries[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("enrich %q: %w", name, err))
			continue
		}
		out[name] = v
	}
	return out, errors.Join(errs...)
}

func parseEntry(raw json.RawMessage) (Value, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return nil, invalid("want [value, type], got %s", clip(raw))
	}
	var tag Type
	if err := json.Unmarshal(pair[1], &tag); err != nil {
		return nil, invalid("type %s is not a string", clip(pair[1]))
	}
	return parseValue(tag, bytes.TrimSpace(pair[0]))
}

func parseValue(tag Type, raw []byte) (Value, error) {
	switch tag {
	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid("value %s is not a string", clip(raw))
		}
		return String(s), nil
	case TypeFloat:
		if !isNumber(raw) {
			return nil, invalid("value %s is not a number", clip(raw))
		}
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, invalid("value %s is not a float: %v", clip(raw), err)
		}
		return Float(f), nil
	case TypeInt:
		if !isNumber(raw) {
			return nil, invalid("value %s is not a number", clip(raw))
		}
		if i, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, invalid("value %s is not an int64", clip(raw))
		}
		return Int(int64(f)), nil
	}
	return nil, invalid("type %q not in supported types %v", tag, SupportedTypes)
}

func isNumber(raw []byte) bool {
	return len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'))
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalize(doc))
}

// normalize rewrites yaml's map[any]any nodes into JSON-encodable maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}

func clip(raw []byte) string {
	const max = 64
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
