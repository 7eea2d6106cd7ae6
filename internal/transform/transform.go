// Package transform projects records onto the model's required feature set
// and layers synthetic test features on top.
package transform

import (
	"maps"
	"slices"

	"featurebench/internal/example"
	"featurebench/internal/featurespec"
)

// NewFeature builds the single-valued feature for v. It reports false for a
// Value it does not know how to encode.
func NewFeature(v featurespec.Value) (example.Feature, bool) {
	switch t := v.(type) {
	case featurespec.String:
		return example.StringFeature(string(t)), true
	case featurespec.Float:
		return example.FloatFeature(float32(t)), true
	case featurespec.Int:
		return example.Int64Feature(int64(t)), true
	}
	return example.Feature{}, false
}

// Enrichment holds prebuilt synthetic features. Building them once lets every
// record share the same immutable values.
type Enrichment struct {
	features map[string]example.Feature
}

// NewEnrichment converts spec values to features. Names whose value cannot be
// encoded are left out and returned in skipped.
func NewEnrichment(values map[string]featurespec.Value) (e Enrichment, skipped []string) {
	e.features = make(map[string]example.Feature, len(values))
	for _, name := range slices.Sorted(maps.Keys(values)) {
		f, ok := NewFeature(values[name])
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		e.features[name] = f
	}
	return e, skipped
}

func (e Enrichment) Len() int { return len(e.features) }

func (e Enrichment) Names() []string { return slices.Sorted(maps.Keys(e.features)) }

// Stats counts what a single Apply did.
type Stats struct {
	Kept     int
	Dropped  int
	Enriched int
}

func (s *Stats) Add(o Stats) {
	s.Kept += o.Kept
	s.Dropped += o.Dropped
	s.Enriched += o.Enriched
}

// Apply keeps the features of rec named in required, then sets every
// enrichment feature, overwriting any kept feature of the same name. rec is
// not modified.
func Apply(rec example.Example, required example.NameSet, enrich Enrichment) example.Example {
	out, _ := ApplyStats(rec, required, enrich)
	return out
}

func ApplyStats(rec example.Example, required example.NameSet, enrich Enrichment) (example.Example, Stats) {
	var st Stats
	b := example.NewBuilder(min(rec.Len(), len(required)) + enrich.Len())
	for name, f := range rec.All() {
		if !required.Has(name) {
			st.Dropped++
			continue
		}
		b.Set(name, f)
		st.Kept++
	}
	for name, f := range enrich.features {
		b.Set(name, f)
		st.Enriched++
	}
	return b.Build(), st
}
