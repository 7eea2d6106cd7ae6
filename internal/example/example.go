package example

import (
	"iter"
	"maps"
	"slices"
)

// Example is an immutable mapping of feature name to Feature.
type Example struct {
	features map[string]Feature
}

// New builds an Example from a copy of features.
func New(features map[string]Feature) Example {
	return Example{features: maps.Clone(features)}
}

// Builder accumulates features for a new Example. The zero value is ready to use.
type Builder struct {
	features map[string]Feature
}

func NewBuilder(size int) *Builder {
	return &Builder{features: make(map[string]Feature, size)}
}

// Set inserts or overwrites name.
func (b *Builder) Set(name string, f Feature) *Builder {
	if b.features == nil {
		b.features = make(map[string]Feature)
	}
	b.features[name] = f
	return b
}

// Build hands the accumulated map to the Example. The builder must not be
// reused afterwards.
func (b *Builder) Build() Example {
	f := b.features
	b.features = nil
	return Example{features: f}
}

func (e Example) Len() int { return len(e.features) }

func (e Example) Get(name string) (Feature, bool) {
	f, ok := e.features[name]
	return f, ok
}

func (e Example) Has(name string) bool {
	_, ok := e.features[name]
	return ok
}

// Names returns the feature names in sorted order.
func (e Example) Names() []string {
	return slices.Sorted(maps.Keys(e.features))
}

// All iterates the features in unspecified order.
func (e Example) All() iter.Seq2[string, Feature] {
	return maps.All(e.features)
}

// Features returns a copy of the feature map.
func (e Example) Features() map[string]Feature {
	return maps.Clone(e.features)
}

// Equal reports whether both examples hold the same names and values.
func (e Example) Equal(o Example) bool {
	return maps.EqualFunc(e.features, o.features, Feature.Equal)
}

// NameSet is a set of feature names.
type NameSet map[string]struct{}

func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Without returns s minus excluded as a new set.
func (s NameSet) Without(excluded NameSet) NameSet {
	out := make(NameSet, len(s))
	for n := range s {
		if !excluded.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

func (s NameSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
