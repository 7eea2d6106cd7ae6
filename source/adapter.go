package source

import (
	"context"
	"errors"

	"featurebench/internal/example"
)

// ErrDecode marks a stored record that cannot be decoded. It aborts the run.
var ErrDecode = errors.New("record decode failed")

type EmitFunc func(example.Example) error

type Adapter interface {
	Configure(any) error
	Run(context.Context, EmitFunc) error
	Close() error
}
