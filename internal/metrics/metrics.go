// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from a load run.
//
// A global, pluggable Backend defaults to a no-op implementation, so the
// Record* helpers are always safe to call. Concrete metric systems live in
// subpackages (prompush, datadog) and are installed with SetBackend.
package metrics

import "time"

// Metric names emitted by the Record* helpers.
const (
	StepTotal    = "sotorrent_step_total"
	StepDuration = "sotorrent_step_duration_seconds"
	RowsTotal    = "sotorrent_rows_total"
	CommitsTotal = "sotorrent_commits_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
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

// RecordStep records latency and outcome of one run step ("schema",
// "load:<table>", "index", "fk_check").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta committed rows for table.
func RecordRows(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}

// RecordCommits adds delta committed transaction batches for table.
func RecordCommits(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(CommitsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}
