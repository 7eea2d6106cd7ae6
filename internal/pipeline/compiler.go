package pipeline

import (
	"fmt"
	"path/filepath"

	"featurebench/internal/config"
	"featurebench/internal/example"
	"featurebench/internal/telemetry"
	"featurebench/internal/tfrecord"
	"featurebench/internal/transform"
	"featurebench/sink"
	sinktfr "featurebench/sink/tfrecord"
	"featurebench/source"
	srctfr "featurebench/source/tfrecord"
)

// Compile opens the input file, the output file and any mirror sinks named in
// cfg. On error everything opened so far is closed again.
func Compile(cfg config.Config, required example.NameSet, enrich transform.Enrichment, m *telemetry.Metrics) (r *Runner, err error) {
	inC, err := tfrecord.ParseCompression(cfg.InputCompression)
	if err != nil {
		return nil, err
	}
	outC, err := tfrecord.ParseCompression(cfg.OutputCompression)
	if err != nil {
		return nil, err
	}
	if samePath(cfg.RecordInputFile, cfg.RecordOutputFile) {
		return nil, fmt.Errorf("record_output_file %q would overwrite the input", cfg.RecordOutputFile)
	}

	r = NewRunner(required, enrich, m)
	defer func() {
		if err != nil {
			_ = r.Close()
			r = nil
		}
	}()

	/*──────── source ───────*/
	src, err := source.NewAdapter("tfrecord")
	if err != nil {
		return r, err
	}
	if err = src.Configure(srctfr.Config{Path: cfg.RecordInputFile, Compression: inC}); err != nil {
		return r, err
	}
	r.SetSource(src)

	/*──────── sinks ───────*/
	out, err := sink.NewAdapter("tfrecord")
	if err != nil {
		return r, err
	}
	if err = out.Configure(sinktfr.Config{Path: cfg.RecordOutputFile, Compression: outC}); err != nil {
		return r, err
	}
	r.AddSink("tfrecord", out)

	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return r, err
		}

		switch name {
		case "stdout":
			err = sDrv.Configure(cfg.Stdout)
		case "kafka":
			err = sDrv.Configure(cfg.Kafka)
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return r, fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(name, sDrv)
	}
	return r, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
