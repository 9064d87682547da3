// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from loads.
//
// It exposes a narrow Backend interface (counters and duration
// observations) behind a global, pluggable backend that defaults to a no-op
// implementation, so instrumentation calls are always safe even when no real
// backend is configured. Concrete systems (Prometheus Pushgateway, Datadog)
// live in subpackages and register via SetBackend; the rest of the codebase
// depends only on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration-style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordLoad measures one load invocation: duration plus success/failure.
func RecordLoad(job string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "status": status}
	backend.IncCounter("stageload_loads_total", 1, lbls)
	backend.ObserveHistogram("stageload_load_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given job and kind.
//
// Kinds mirror the load report fields:
//   - "accepted"
//   - "rejected_decode"
//   - "rejected_coercion"
//   - "rejected_schema"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("stageload_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the flushed-batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("stageload_batches_total", float64(delta), Labels{"job": job})
}
