// Package featurespec loads and validates the test feature spec: the feature
// names to exclude from the model's required set and the typed synthetic
// features to inject into every record.
//
// A spec document looks like
//
//	{
//	  "remove": ["user_age"],
//	  "enrich": {"bench_flag": [1, "int"], "bench_tag": ["run-1", "str"]}
//	}
package featurespec

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"featurebench/internal/example"
	"featurebench/internal/logging"
)

// NoSpec is the sentinel spec path meaning "no spec supplied".
const NoSpec = "{}"

// ErrInvalid marks every validation failure of a spec document.
var ErrInvalid = errors.New("invalid test feature spec")

// Type is a spec type tag.
type Type string

const (
	TypeString Type = "str"
	TypeFloat  Type = "float"
	TypeInt    Type = "int"
)

// SupportedTypes lists the accepted tags.
var SupportedTypes = []Type{TypeString, TypeFloat, TypeInt}

// Value is a synthetic feature value. The implementations in this package are
// the only ones: String, Float and Int.
type Value interface {
	Type() Type
	sealed()
}

type (
	String string
	Float  float64
	Int    int64
)

func (String) Type() Type { return TypeString }
func (Float) Type() Type  { return TypeFloat }
func (Int) Type() Type    { return TypeInt }

func (String) sealed() {}
func (Float) sealed()  {}
func (Int) sealed()    {}

// Spec is immutable after Load.
type Spec struct {
	remove example.NameSet
	enrich map[string]Value
}

// Empty reports whether s neither removes nor adds anything.
func (s Spec) Empty() bool { return len(s.remove) == 0 && len(s.enrich) == 0 }

// Remove returns a copy of the excluded names.
func (s Spec) Remove() example.NameSet { return maps.Clone(s.remove) }

// Enrich returns a copy of the synthetic feature values.
func (s Spec) Enrich() map[string]Value { return maps.Clone(s.enrich) }

// EnrichNames returns the synthetic feature names in sorted order.
func (s Spec) EnrichNames() []string { return slices.Sorted(maps.Keys(s.enrich)) }

type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the document format from a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Load reads and validates the feature spec at path. NoSpec and the empty path yield
// an empty spec.
func Load(path string) (Spec, error) {
	if path == "" || path == NoSpec {
		logging.L().Warn("no test features provided; continuing without them")
		return Spec{remove: example.NameSet{}, enrich: map[string]Value{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("featurespec: %w", err)
	}
	s, err := Parse(raw, FormatFor(path))
	if err != nil {
		return Spec{}, fmt.Errorf("featurespec %s: %w", path, err)
	}
	return s, nil
}
