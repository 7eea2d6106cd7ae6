package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"featurebench/internal/logging"
)

// Metrics are the run counters. Each run owns its registry so tests and
// repeated runs in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsRead      prometheus.Counter
	RecordsWritten   *prometheus.CounterVec
	FeaturesDropped  prometheus.Counter
	FeaturesEnriched prometheus.Counter
	MetadataFetch    prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RecordsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: "featurebench", Name: "records_read_total",
			Help: "Records decoded from the input file.",
		}),
		RecordsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featurebench", Name: "records_written_total",
			Help: "Transformed records accepted by a sink.",
		}, []string{"sink"}),
		FeaturesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "featurebench", Name: "features_dropped_total",
			Help: "Stored features removed because the model does not consume them.",
		}),
		FeaturesEnriched: f.NewCounter(prometheus.CounterOpts{
			Namespace: "featurebench", Name: "features_enriched_total",
			Help: "Synthetic features set on records.",
		}),
		MetadataFetch: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "featurebench", Name: "metadata_fetch_seconds",
			Help:    "Duration of the model metadata fetch.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Expose serves the registry on /metrics until srv is closed. port 0 disables it.
func Expose(port int, reg *prometheus.Registry) *http.Server {
	if port == 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics listener stopped", "port", port, "err", err)
		}
	}()
	return srv
}
