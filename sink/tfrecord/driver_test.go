package tfrecord

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurebench/internal/example"
	tfr "featurebench/internal/tfrecord"
)

func TestDriver_WritesReadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tfrecord.gz")
	d := &driver{}
	require.NoError(t, d.Configure(Config{Path: path, Compression: tfr.Gzip}))

	recs := []example.Example{
		example.New(map[string]example.Feature{"a": example.FloatFeature(1)}),
		example.New(map[string]example.Feature{"b": example.StringFeature("x")}),
	}
	for _, r := range recs {
		require.NoError(t, d.Push(r))
	}
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Error(t, d.Push(recs[0]))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := tfr.NewReader(f, tfr.Gzip)
	require.NoError(t, err)

	i := 0
	for raw, err := range r.Records() {
		require.NoError(t, err)
		got, err := example.Unmarshal(raw)
		require.NoError(t, err)
		assert.True(t, got.Equal(recs[i]))
		i++
	}
	assert.Equal(t, len(recs), i)
}

func TestDriver_ConfigureFailsOnMissingDir(t *testing.T) {
	d := &driver{}
	err := d.Configure(Config{Path: filepath.Join(t.TempDir(), "no", "such", "out.tfrecord")})
	assert.Error(t, err)
}
