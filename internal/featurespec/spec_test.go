package featurespec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SentinelYieldsEmptySpec(t *testing.T) {
	s, err := Load(NoSpec)
	require.NoError(t, err)
	assert.True(t, s.Empty())
	assert.Empty(t, s.Remove())
	assert.Empty(t, s.Enrich())
}

func TestParse_ValidJSON(t *testing.T) {
	s, err := Parse([]byte(`{
		"remove": ["b", "c"],
		"enrich": {
			"d": [1, "int"],
			"e": [3.5, "float"],
			"f": ["x", "str"],
			"g": [7.0, "int"],
			"h": [2, "float"]
		}
	}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c"}, s.Remove().Sorted())
	assert.Equal(t, map[string]Value{
		"d": Int(1),
		"e": Float(3.5),
		"f": String("x"),
		"g": Int(7),
		"h": Float(2),
	}, s.Enrich())
	assert.Equal(t, []string{"d", "e", "f", "g", "h"}, s.EnrichNames())
}

func TestParse_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unsupported tag":   `{"remove": [], "enrich": {"x": [1, "double"]}}`,
		"remove not a list": `{"remove": 3, "enrich": {}}`,
		"remove of numbers": `{"remove": [1, 2], "enrich": {}}`,
		"missing remove":    `{"enrich": {}}`,
		"missing enrich":    `{"remove": []}`,
		"enrich not object": `{"remove": [], "enrich": ["x"]}`,
		"pair too short":    `{"remove": [], "enrich": {"x": [1]}}`,
		"tag not string":    `{"remove": [], "enrich": {"x": [1, 2]}}`,
		"str from number":   `{"remove": [], "enrich": {"x": [1, "str"]}}`,
		"float from string": `{"remove": [], "enrich": {"x": ["1.5", "float"]}}`,
		"int from fraction": `{"remove": [], "enrich": {"x": [1.5, "int"]}}`,
		"not an object":     `[1, 2]`,
		"not even json":     `{remove`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte(`{"remove": "b", "enrich": {"x": [1, "double"], "y": ["a", "int"]}}`), FormatJSON)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "remove")
	assert.Contains(t, msg, `enrich "x"`)
	assert.Contains(t, msg, `enrich "y"`)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	doc := []byte(`remove: [b]
enrich:
  d: [1, int]
  tag: ["run-1", str]
`)
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Remove().Has("b"))
	assert.Equal(t, Int(1), s.Enrich()["d"])
	assert.Equal(t, String("run-1"), s.Enrich()["tag"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSpec_AccessorsReturnCopies(t *testing.T) {
	s, err := Parse([]byte(`{"remove": ["a"], "enrich": {"x": [1, "int"]}}`), FormatJSON)
	require.NoError(t, err)

	s.Remove()["z"] = struct{}{}
	s.Enrich()["y"] = Int(2)

	assert.False(t, s.Remove().Has("z"))
	assert.NotContains(t, s.Enrich(), "y")
}
