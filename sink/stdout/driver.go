// featurebench/sink/stdout/driver.go
package stdout

import (
	"fmt"
	"io"
	"os"
	"strings"

	"featurebench/internal/example"
	"featurebench/sink"
)

/* ────────── public config ────────── */
type Config struct {
	PrintCounter  bool `koanf:"print_counter"`  // prepend seq#
	PrintFeatures bool `koanf:"print_features"` // dump values, names only otherwise
	MaxRecords    int  `koanf:"max_records"`    // 0 = unlimited

	Out io.Writer `koanf:"-"` // defaults to os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
	out io.Writer
	seq uint64
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg, d.out = c, c.Out
	if d.out == nil {
		d.out = os.Stdout
	}
	return nil
}

func (d *driver) Push(e example.Example) error {
	d.seq++
	if d.cfg.MaxRecords > 0 && d.seq > uint64(d.cfg.MaxRecords) {
		return nil
	}

	var b strings.Builder
	if d.cfg.PrintCounter {
		fmt.Fprintf(&b, "[sink %06d]", d.seq)
	} else {
		b.WriteString("[sink]")
	}
	for _, name := range e.Names() {
		if d.cfg.PrintFeatures {
			f, _ := e.Get(name)
			fmt.Fprintf(&b, " %s=%s", name, f)
		} else {
			fmt.Fprintf(&b, " %s", name)
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(d.out, b.String())
	return err
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
