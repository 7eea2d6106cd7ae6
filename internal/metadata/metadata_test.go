package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurebench/internal/example"
)

const servingMetadata = `{
  "model_spec": {"name": "ranker", "version": "7"},
  "metadata": {"signature_def": {"signature_def": {
    "serving_default": {"method_name": "tensorflow/serving/predict"},
    "serving_feature_names": {"outputs": {
      "a": {"dtype": "DT_FLOAT"},
      "b": {"dtype": "DT_STRING"},
      "c": {"dtype": "DT_INT64"}
    }}
  }}}
}`

func TestResolve_SubtractsExcluded(t *testing.T) {
	doc, err := decode([]byte(servingMetadata))
	require.NoError(t, err)

	got, err := Resolve(doc, example.NewNameSet("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got.Sorted())
}

func TestResolve_ShapeErrors(t *testing.T) {
	cases := map[string]string{
		"missing metadata":   `{"model_spec": {}}`,
		"missing outputs":    `{"metadata": {"signature_def": {"signature_def": {"serving_feature_names": {}}}}}`,
		"outputs not object": `{"metadata": {"signature_def": {"signature_def": {"serving_feature_names": {"outputs": ["a"]}}}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := decode([]byte(body))
			require.NoError(t, err)
			_, err = Resolve(doc, nil)
			assert.True(t, errors.Is(err, ErrShape), "got %v", err)
		})
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models/ranker/metadata", r.URL.Path)
		_, _ = w.Write([]byte(servingMetadata))
	}))
	defer srv.Close()

	f, err := NewFetcher(Config{Verbose: true})
	require.NoError(t, err)

	doc, err := f.Fetch(context.Background(), srv.URL+"/v1/models/ranker/metadata")
	require.NoError(t, err)
	names, err := Resolve(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names.Sorted())
}

func TestHTTPFetcher_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"null": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("null"))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := (&HTTPFetcher{Client: srv.Client()}).Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFetch), "got %v", err)
		})
	}
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := (&HTTPFetcher{}).Fetch(context.Background(), url)
	assert.True(t, errors.Is(err, ErrFetch), "got %v", err)
}

func TestExecFetcher(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("decodes stdout", func(t *testing.T) {
		f := &ExecFetcher{Command: "sh", Args: []string{"-c", `printf '%s' "$1"`, "sh"}, Verbose: true}
		doc, err := f.Fetch(context.Background(), servingMetadata)
		require.NoError(t, err)
		names, err := Resolve(doc, example.NewNameSet("a"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, names.Sorted())
	})

	t.Run("non-zero exit", func(t *testing.T) {
		f := &ExecFetcher{Command: "sh", Args: []string{"-c", "echo unreachable >&2; exit 7", "sh"}}
		_, err := f.Fetch(context.Background(), "http://modelset.invalid")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFetch))
		assert.Contains(t, err.Error(), "exit 7")
		assert.Contains(t, err.Error(), "unreachable")
	})

	t.Run("undecodable", func(t *testing.T) {
		f := &ExecFetcher{Command: "sh", Args: []string{"-c", "echo not-json", "sh"}}
		_, err := f.Fetch(context.Background(), "x")
		assert.True(t, errors.Is(err, ErrFetch), "got %v", err)
	})
}

func TestNewFetcher_UnknownTransport(t *testing.T) {
	_, err := NewFetcher(Config{Transport: "grpc"})
	assert.Error(t, err)
}
