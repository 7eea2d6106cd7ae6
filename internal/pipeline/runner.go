package pipeline

import (
	"context"
	"errors"
	"fmt"

	"featurebench/internal/example"
	"featurebench/internal/telemetry"
	"featurebench/internal/transform"
	"featurebench/sink"
	"featurebench/source"
)

// Stats summarizes a run.
type Stats struct {
	Records int
	transform.Stats
}

type namedSink struct {
	name string
	sink.Adapter
}

// Runner streams records from one source through the transform stage to
// every sink, one record at a time and in source order.
type Runner struct {
	source source.Adapter
	sinks  []namedSink

	required example.NameSet
	enrich   transform.Enrichment
	metrics  *telemetry.Metrics

	stats  Stats
	closed bool
}

func NewRunner(required example.NameSet, enrich transform.Enrichment, m *telemetry.Metrics) *Runner {
	if m == nil {
		m = telemetry.NewMetrics()
	}
	return &Runner{required: required, enrich: enrich, metrics: m}
}

func (r *Runner) AddSink(name string, s sink.Adapter) {
	r.sinks = append(r.sinks, namedSink{name: name, Adapter: s})
}
func (r *Runner) SetSource(s source.Adapter) { r.source = s }

/*──────── record routing ───────*/
func (r *Runner) pushRecord(rec example.Example) error {
	out, st := transform.ApplyStats(rec, r.required, r.enrich)
	r.stats.Records++
	r.stats.Add(st)
	r.metrics.RecordsRead.Inc()
	r.metrics.FeaturesDropped.Add(float64(st.Dropped))
	r.metrics.FeaturesEnriched.Add(float64(st.Enriched))

	for _, s := range r.sinks {
		if err := s.Push(out); err != nil {
			return fmt.Errorf("sink %s: %w", s.name, err)
		}
		r.metrics.RecordsWritten.WithLabelValues(s.name).Inc()
	}
	return nil
}

// Run drains the source. Source and sinks are closed on every path; close
// errors are joined to the result.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.source == nil {
		return r.stats, errors.Join(errors.New("runner: no source configured"), r.Close())
	}
	if len(r.sinks) == 0 {
		return r.stats, errors.Join(errors.New("runner: no sinks configured"), r.Close())
	}
	err := r.source.Run(ctx, r.pushRecord)
	return r.stats, errors.Join(err, r.Close())
}

// Close releases the source and every sink once.
func (r *Runner) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	if r.source != nil {
		if err := r.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("source: %w", err))
		}
	}
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
