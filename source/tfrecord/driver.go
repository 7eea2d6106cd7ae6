// Package tfrecord is the source driver for a single TFRecord file of
// tf.Example records.
package tfrecord

import (
	"context"
	"errors"
	"fmt"
	"os"

	"featurebench/internal/example"
	"featurebench/internal/logging"
	tfr "featurebench/internal/tfrecord"
	"featurebench/source"
)

type Config struct {
	Path        string
	Compression tfr.Compression
}

type driver struct {
	cfg  Config
	f    *os.File
	r    *tfr.Reader
	read int
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("tfrecord-source: expected Config, got %T", raw)
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("tfrecord-source: %w", err)
	}
	r, err := tfr.NewReader(f, c.Compression)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("tfrecord-source: %s: %w", c.Path, err)
	}
	d.cfg, d.f, d.r = c, f, r
	return nil
}

// Run decodes records in file order and hands each to emit. The first decode
// or emit error stops the stream.
func (d *driver) Run(ctx context.Context, emit source.EmitFunc) error {
	if d.r == nil {
		return errors.New("tfrecord-source: not configured")
	}
	for raw, err := range d.r.Records() {
		if err != nil {
			return fmt.Errorf("%w: %s: %w", source.ErrDecode, d.cfg.Path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ex, err := example.Unmarshal(raw)
		if err != nil {
			return fmt.Errorf("%w: %s record %d: %w", source.ErrDecode, d.cfg.Path, d.read, err)
		}
		d.read++
		if err := emit(ex); err != nil {
			return err
		}
	}
	logging.L().Debug("tfrecord-source: end of input", "path", d.cfg.Path, "records", d.read)
	return nil
}

func (d *driver) Close() error {
	if d.f == nil {
		return nil
	}
	err := errors.Join(d.r.Close(), d.f.Close())
	d.f, d.r = nil, nil
	return err
}

func init() {
	source.Register("tfrecord", func() source.Adapter { return &driver{} })
}
