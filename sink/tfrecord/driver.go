// Package tfrecord is the sink writing tf.Example records to a TFRecord file.
package tfrecord

import (
	"errors"
	"fmt"
	"os"

	"featurebench/internal/example"
	"featurebench/internal/logging"
	tfr "featurebench/internal/tfrecord"
	"featurebench/sink"
)

type Config struct {
	Path        string
	Compression tfr.Compression
}

type driver struct {
	cfg Config
	f   *os.File
	w   *tfr.Writer
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("tfrecord-sink: expected Config, got %T", raw)
	}
	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("tfrecord-sink: %w", err)
	}
	w, err := tfr.NewWriter(f, c.Compression)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("tfrecord-sink: %s: %w", c.Path, err)
	}
	d.cfg, d.f, d.w = c, f, w
	return nil
}

func (d *driver) Push(e example.Example) error {
	if d.w == nil {
		return errors.New("tfrecord-sink: not configured or closed")
	}
	if err := d.w.Write(example.Marshal(e)); err != nil {
		return fmt.Errorf("tfrecord-sink: %s: %w", d.cfg.Path, err)
	}
	return nil
}

// Close flushes and closes the file. Records pushed before a failure stay in
// the file.
func (d *driver) Close() error {
	if d.f == nil {
		return nil
	}
	err := errors.Join(d.w.Close(), d.f.Close())
	logging.L().Debug("tfrecord-sink: closed", "path", d.cfg.Path, "records", d.w.Count())
	d.f, d.w = nil, nil
	if err != nil {
		return fmt.Errorf("tfrecord-sink: %s: %w", d.cfg.Path, err)
	}
	return nil
}

func init() {
	sink.Register("tfrecord", func() sink.Adapter { return &driver{} })
}
