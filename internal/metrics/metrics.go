// Package metrics holds the prometheus collectors for trace ingestion and
// path resolution.
//
// Collectors live in a private registry rather than the global default so
// that tests and repeated CLI runs in one process never collide. Callers that
// want to expose them can hand Registry to promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is one set of collectors bound to its own registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// records counts decoded trace records by tag name
	records *prometheus.CounterVec

	// unknownProcesses counts synthetic actions created for unbound processes
	unknownProcesses prometheus.Counter

	// bytesRead counts decoded (uncompressed) trace bytes
	bytesRead prometheus.Counter

	// sessions counts finished ingestion sessions by final status
	sessions *prometheus.CounterVec

	// ingestDuration tracks wall time per ingestion session
	ingestDuration prometheus.Histogram

	// cacheHits and cacheMisses track the (parent, name) path cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// New creates collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "buildml_trace_records_total",
			Help: "Trace records applied, by tag",
		}, []string{"tag"}),
		unknownProcesses: f.NewCounter(prometheus.CounterOpts{
			Name: "buildml_unknown_processes_total",
			Help: "Synthetic actions created for processes with no NEW_PROGRAM record",
		}),
		bytesRead: f.NewCounter(prometheus.CounterOpts{
			Name: "buildml_trace_bytes_total",
			Help: "Uncompressed trace bytes decoded",
		}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "buildml_ingest_sessions_total",
			Help: "Finished ingestion sessions, by status",
		}, []string{"status"}),
		ingestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "buildml_ingest_duration_seconds",
			Help:    "Ingestion session duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45min
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "buildml_path_cache_hits_total",
			Help: "Path component lookups served from the LRU cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "buildml_path_cache_misses_total",
			Help: "Path component lookups that went to the store",
		}),
	}
}

// RecordApplied counts one applied trace record.
func (m *Metrics) RecordApplied(tag string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(tag).Inc()
}

// UnknownProcess counts one synthetic unknown-process action.
func (m *Metrics) UnknownProcess() {
	if m == nil {
		return
	}
	m.unknownProcesses.Inc()
}

// BytesRead adds n decoded bytes.
func (m *Metrics) BytesRead(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRead.Add(float64(n))
}

// SessionFinished records a session's final status and duration.
func (m *Metrics) SessionFinished(status string, seconds float64) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(status).Inc()
	m.ingestDuration.Observe(seconds)
}

// CacheHit counts one path cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss counts one path cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
