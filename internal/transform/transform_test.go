package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurebench/internal/example"
	"featurebench/internal/featurespec"
)

func record() example.Example {
	return example.New(map[string]example.Feature{
		"a": example.FloatFeature(1),
		"b": example.StringFeature("keep"),
		"c": example.Int64Feature(9),
	})
}

func TestApply_FiltersToRequired(t *testing.T) {
	required := example.NewNameSet("a", "c", "missing")

	got := Apply(record(), required, Enrichment{})

	want := example.New(map[string]example.Feature{
		"a": example.FloatFeature(1),
		"c": example.Int64Feature(9),
	})
	assert.True(t, got.Equal(want), "got %v", got.Names())
}

func TestApply_EnrichmentTakesPrecedence(t *testing.T) {
	rec := example.New(map[string]example.Feature{"a": example.Int64Feature(1)})
	enrich, skipped := NewEnrichment(map[string]featurespec.Value{"b": featurespec.Float(3.5)})
	require.Empty(t, skipped)

	got := Apply(rec, example.NewNameSet("a"), enrich)

	want := example.New(map[string]example.Feature{
		"a": example.Int64Feature(1),
		"b": example.FloatFeature(3.5),
	})
	assert.True(t, got.Equal(want), "got %v", got.Names())
}

func TestApply_EnrichmentOverwritesAndReintroduces(t *testing.T) {
	enrich, _ := NewEnrichment(map[string]featurespec.Value{
		"a": featurespec.String("synthetic"),
		"c": featurespec.Int(42),
	})

	got, st := ApplyStats(record(), example.NewNameSet("a", "b"), enrich)

	a, _ := got.Get("a")
	assert.Equal(t, [][]byte{[]byte("synthetic")}, a.Bytes())
	c, ok := got.Get("c")
	require.True(t, ok, "filtered feature must come back through enrichment")
	assert.Equal(t, []int64{42}, c.Int64s())
	assert.Equal(t, Stats{Kept: 2, Dropped: 1, Enriched: 2}, st)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	rec := record()
	enrich, _ := NewEnrichment(map[string]featurespec.Value{"d": featurespec.Int(1)})

	_ = Apply(rec, example.NewNameSet("a"), enrich)

	assert.True(t, rec.Equal(record()))
	assert.False(t, rec.Has("d"))
}

func TestApply_FilterOnlyIsIdempotent(t *testing.T) {
	required := example.NewNameSet("a", "b")

	once := Apply(record(), required, Enrichment{})
	twice := Apply(once, required, Enrichment{})

	assert.True(t, once.Equal(twice))
}

func TestApply_EmptySpecIsPureFiltering(t *testing.T) {
	spec, err := featurespec.Load(featurespec.NoSpec)
	require.NoError(t, err)
	enrich, skipped := NewEnrichment(spec.Enrich())
	require.Empty(t, skipped)

	got := Apply(record(), example.NewNameSet("b").Without(spec.Remove()), enrich)

	assert.Equal(t, []string{"b"}, got.Names())
}

func TestNewFeature_CoversEveryType(t *testing.T) {
	cases := []struct {
		in   featurespec.Value
		want example.Feature
	}{
		{featurespec.Int(7), example.Int64Feature(7)},
		{featurespec.String("x"), example.StringFeature("x")},
		{featurespec.Float(0.25), example.FloatFeature(0.25)},
	}
	for _, c := range cases {
		got, ok := NewFeature(c.in)
		require.True(t, ok, "type %s", c.in.Type())
		assert.Equal(t, 1, got.Len())
		assert.True(t, got.Equal(c.want), "got %v want %v", got, c.want)
	}
	assert.Len(t, featurespec.SupportedTypes, len(cases))
}

func TestNewEnrichment_SkipsUnencodable(t *testing.T) {
	e, skipped := NewEnrichment(map[string]featurespec.Value{
		"ok":  featurespec.Int(1),
		"nil": nil,
	})
	assert.Equal(t, []string{"nil"}, skipped)
	assert.Equal(t, []string{"ok"}, e.Names())
}

func TestApply_EndToEndScenario(t *testing.T) {
	spec, err := featurespec.Parse([]byte(`{"remove": [], "enrich": {"d": [1, "int"]}}`), featurespec.FormatJSON)
	require.NoError(t, err)
	enrich, _ := NewEnrichment(spec.Enrich())

	got := Apply(record(), example.NewNameSet("a", "b").Without(spec.Remove()), enrich)

	want := example.New(map[string]example.Feature{
		"a": example.FloatFeature(1),
		"b": example.StringFeature("keep"),
		"d": example.Int64Feature(1),
	})
	assert.True(t, got.Equal(want), "got %v", got.Names())
}
