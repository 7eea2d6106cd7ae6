// Package metadata fetches model-serving metadata and derives the set of
// feature names a served model consumes.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"

	json "github.com/goccy/go-json"

	"featurebench/internal/logging"
)

// ErrFetch marks transport failures and undecodable responses.
var ErrFetch = errors.New("metadata fetch failed")

// Document is a decoded metadata response.
type Document map[string]any

type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (Document, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, endpoint string) (Document, error)

func (f FetcherFunc) Fetch(ctx context.Context, endpoint string) (Document, error) {
	return f(ctx, endpoint)
}

type Config struct {
	Transport string        `koanf:"transport"` // http|exec
	Command   string        `koanf:"command"`   // exec only
	Args      []string      `koanf:"args"`      // exec only, placed before the endpoint
	Timeout   time.Duration `koanf:"timeout"`   // 0 = transport default
	Verbose   bool          `koanf:"verbose"`
}

// NewFetcher returns the fetcher named by cfg.Transport; empty means http.
func NewFetcher(cfg Config) (Fetcher, error) {
	switch cfg.Transport {
	case "", "http":
		return &HTTPFetcher{Client: &http.Client{Timeout: cfg.Timeout}, Verbose: cfg.Verbose}, nil
	case "exec":
		return &ExecFetcher{Command: cfg.Command, Args: cfg.Args, Timeout: cfg.Timeout, Verbose: cfg.Verbose}, nil
	}
	return nil, fmt.Errorf("metadata: unsupported transport %q", cfg.Transport)
}

const maxDiagnostic = 512

// HTTPFetcher issues a single GET against the endpoint.
type HTTPFetcher struct {
	Client  *http.Client
	Verbose bool
}

func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	cl := f.Client
	if cl == nil {
		cl = http.DefaultClient
	}
	resp, err := cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrFetch, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: read body: %v", ErrFetch, endpoint, err)
	}
	if f.Verbose {
		logging.L().Info("metadata response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d: %s", ErrFetch, endpoint, resp.StatusCode, truncate(body))
	}
	return decode(body)
}

// ExecFetcher runs an external command and decodes its stdout.
type ExecFetcher struct {
	Command string // default "curl"
	Args    []string
	Timeout time.Duration
	Verbose bool
}

var defaultCurlArgs = []string{"--silent", "--show-error", "--fail"}

func (f *ExecFetcher) Fetch(ctx context.Context, endpoint string) (Document, error) {
	name, args := f.Command, f.Args
	if name == "" {
		name = "curl"
		if args == nil {
			args = defaultCurlArgs
		}
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, append(append([]string(nil), args...), endpoint)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()

	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	if f.Verbose {
		logging.L().Info("metadata command finished", "command", name, "exit_code", code, "stderr", string(truncate(stderr.Bytes())))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: exit %d: %v: %s", ErrFetch, name, endpoint, code, err, truncate(stderr.Bytes()))
	}
	return decode(stdout.Bytes())
}

func decode(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v: %s", ErrFetch, err, truncate(body))
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty response", ErrFetch)
	}
	return doc, nil
}

func truncate(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if len(b) > maxDiagnostic {
		return append(b[:maxDiagnostic:maxDiagnostic], "..."...)
	}
	return b
}
