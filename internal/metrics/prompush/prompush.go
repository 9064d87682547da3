// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It adapts the generic metrics.Backend interface to Prometheus by mapping
// the load/row/batch metric names onto client_golang collectors and pushing
// the registry to a Pushgateway instead of exposing a scrape endpoint, which
// suits short-lived load runs. All Prometheus-specific dependencies live
// here so the rest of the project stays decoupled from Prometheus.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"stageload/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	loadCounter  *prometheus.CounterVec // stageload_loads_total
	loadDuration *prometheus.SummaryVec // stageload_load_duration_seconds
	rowCounter   *prometheus.CounterVec // stageload_rows_total
	batchCounter prometheus.Counter     // stageload_batches_total
}

// NewBackend constructs a Pushgateway backend. jobName becomes the
// Pushgateway "job" grouping key; gatewayURL is the Pushgateway base URL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "stageload"
	}

	reg := prometheus.NewRegistry()

	loadCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stageload_loads_total",
			Help: "Total number of load invocations, partitioned by status.",
		},
		[]string{"status"},
	)
	loadDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "stageload_load_duration_seconds",
			Help:       "Duration of load invocations in seconds, partitioned by status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stageload_rows_total",
			Help: "Row-level counts per kind (accepted, rejected_decode, rejected_coercion, rejected_schema).",
		},
		[]string{"kind"},
	)
	batchCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stageload_batches_total",
			Help: "Total number of sink batches flushed.",
		},
	)

	for _, c := range []prometheus.Collector{loadCounter, loadDuration, rowCounter, batchCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		loadCounter:  loadCounter,
		loadDuration: loadDuration,
		rowCounter:   rowCounter,
		batchCounter: batchCounter,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "stageload_loads_total":
		b.loadCounter.WithLabelValues(labels["status"]).Add(delta)
	case "stageload_rows_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "stageload_batches_total":
		b.batchCounter.Add(delta)
	default:
		// unknown metric name: ignore
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "stageload_load_duration_seconds" {
		return
	}
	b.loadDuration.WithLabelValues(labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
