package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"featurebench/internal/config"
	"featurebench/internal/featurespec"
	"featurebench/internal/logging"
	"featurebench/internal/metadata"
	"featurebench/internal/pipeline"
	"featurebench/internal/telemetry"
	"featurebench/internal/transform"
	"featurebench/internal/transport"
)

type Option func(*options)

type options struct {
	fetcher metadata.Fetcher
	metrics *telemetry.Metrics
}

// WithFetcher replaces the transport selected by cfg.Metadata.
func WithFetcher(f metadata.Fetcher) Option { return func(o *options) { o.fetcher = f } }

func WithMetrics(m *telemetry.Metrics) Option { return func(o *options) { o.metrics = m } }

// Bootstrap runs every stage before streaming, in order: feature spec validation,
// metadata fetch, required-set resolution, opening input and outputs. Nothing
// touches the network before the feature spec is valid.
func Bootstrap(ctx context.Context, cfg config.Config, opts ...Option) (e *Engine, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = telemetry.NewMetrics()
	}
	log := logging.L().With("run_id", uuid.NewString())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. test feature spec
	spec, err := featurespec.Load(cfg.TestFeatureSpecFile)
	if err != nil {
		return nil, err
	}
	enrich, skipped := transform.NewEnrichment(spec.Enrich())
	if len(skipped) > 0 {
		log.Warn("synthetic features with unsupported values left out", "features", skipped)
	}
	fetcher := o.fetcher
	if fetcher == nil {
		if fetcher, err = metadata.NewFetcher(cfg.Metadata); err != nil {
			return nil, err
		}
	}

	e = &Engine{cfg: cfg, log: log, metrics: o.metrics}
	defer func() {
		if err != nil {
			e.stopEndpoints()
			e = nil
		}
	}()

	// 2. control + metrics endpoints
	if cfg.ControlPort != 0 {
		if e.control, err = transport.StartServer(cfg.ControlPort); err != nil {
			return e, fmt.Errorf("transport: %w", err)
		}
		go func(s *transport.Server) {
			if err := s.Serve(); err != nil {
				log.Error("control server stopped", "err", err)
			}
		}(e.control)
	}
	e.metricsSrv = telemetry.Expose(cfg.MetricsPort, o.metrics.Registry)

	// 3. served feature names
	start := time.Now()
	doc, err := fetcher.Fetch(ctx, cfg.ModelsetEndpoint)
	o.metrics.MetadataFetch.Observe(time.Since(start).Seconds())
	if err != nil {
		return e, err
	}
	required, err := metadata.Resolve(doc, spec.Remove())
	if err != nil {
		return e, err
	}
	log.Info("resolved required features",
		"endpoint", cfg.ModelsetEndpoint,
		"required", len(required),
		"removed", len(spec.Remove()),
		"enriched", enrich.Names(),
	)
	log.Debug("required feature names", "names", required.Sorted())

	// 4. pipeline runner
	if e.runner, err = pipeline.Compile(cfg, required, enrich, o.metrics); err != nil {
		return e, fmt.Errorf("pipeline: %w", err)
	}
	return e, nil
}

func (e *Engine) stopEndpoints() {
	if e.control != nil {
		e.control.Stop()
		e.control = nil
	}
	if e.metricsSrv != nil {
		_ = e.metricsSrv.Close()
		e.metricsSrv = nil
	}
}
