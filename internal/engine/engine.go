package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"featurebench/internal/config"
	"featurebench/internal/pipeline"
	"featurebench/internal/telemetry"
	"featurebench/internal/transport"
)

type Engine struct {
	cfg     config.Config
	log     *slog.Logger
	metrics *telemetry.Metrics

	runner     *pipeline.Runner
	control    *transport.Server
	metricsSrv *http.Server
}

// Run streams every record and shuts the endpoints down. An Engine runs once.
func (e *Engine) Run(ctx context.Context) (pipeline.Stats, error) {
	defer e.stopEndpoints()
	if e.runner == nil {
		return pipeline.Stats{}, errors.New("engine: already run")
	}
	runner := e.runner
	e.runner = nil

	if e.control != nil {
		e.control.SetServing(true)
	}
	start := time.Now()
	st, err := runner.Run(ctx)
	if err != nil {
		e.log.Error("run failed", "records", st.Records, "output", e.cfg.RecordOutputFile, "err", err)
		return st, err
	}
	e.log.Info("done writing updated examples",
		"output", e.cfg.RecordOutputFile,
		"records", st.Records,
		"features_dropped", st.Dropped,
		"features_enriched", st.Enriched,
		"elapsed", time.Since(start),
	)
	return st, nil
}

// Close releases everything Bootstrap opened when Run is not called.
func (e *Engine) Close() error {
	defer e.stopEndpoints()
	if e.runner == nil {
		return nil
	}
	err := e.runner.Close()
	e.runner = nil
	return err
}
