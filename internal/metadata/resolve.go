package metadata

import (
	"errors"
	"fmt"
	"strings"

	"featurebench/internal/example"
)

// ErrShape is returned when the feature-name path is missing or malformed.
var ErrShape = errors.New("unexpected metadata shape")

// OutputsPath locates the served feature names in a TF Serving metadata
// response. The keys of the object at this path are the names.
var OutputsPath = []string{"metadata", "signature_def", "signature_def", "serving_feature_names", "outputs"}

// Resolve returns the served feature names minus excluded.
func Resolve(doc Document, excluded example.NameSet) (example.NameSet, error) {
	outputs, err := lookup(map[string]any(doc), OutputsPath)
	if err != nil {
		return nil, err
	}
	names := make(example.NameSet, len(outputs))
	for name := range outputs {
		names[name] = struct{}{}
	}
	return names.Without(excluded), nil
}

func lookup(node map[string]any, path []string) (map[string]any, error) {
	for i, key := range path {
		at := strings.Join(path[:i+1], ".")
		v, ok := node[key]
		if !ok {
			return nil, fmt.Errorf("%w: key %q not found", ErrShape, at)
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %T, want object", ErrShape, at, v)
		}
		node = next
	}
	return node, nil
}
