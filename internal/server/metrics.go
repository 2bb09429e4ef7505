package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"filestore/internal/store"
)

// Metrics holds the server's Prometheus collectors. Each Metrics owns its
// registry so several servers can live in one test binary.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	events       *prometheus.CounterVec
	bytesStored  prometheus.Counter
	dedup        *prometheus.CounterVec
	conflicts    prometheus.Counter
	reconciled   prometheus.Counter
	mirrorErrors prometheus.Counter
}

// NewMetrics registers the server collectors plus Go runtime and process
// collectors. When st is non-nil a gauge reports the number of stored files.
func NewMetrics(st *store.Store, build BuildInfo) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filestore_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filestore_http_request_duration_seconds",
			Help:    "HTTP request latency by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filestore_store_events_total",
			Help: "Store mutations by kind.",
		}, []string{"kind"}),
		bytesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filestore_stored_bytes_total",
			Help: "Bytes written into the store by uploads and dedup copies.",
		}),
		dedup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filestore_dedup_checks_total",
			Help: "Duplicate checks by result.",
		}, []string{"result"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filestore_upload_conflicts_total",
			Help: "Adds rejected because a file already existed.",
		}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filestore_reconcile_fixed_total",
			Help: "Index inconsistencies repaired by reconciliation.",
		}),
		mirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filestore_mirror_errors_total",
			Help: "Failed object mirror operations.",
		}),
	}

	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "filestore_build_info",
		Help:        "Build version and commit.",
		ConstLabels: prometheus.Labels{"version": build.Version, "commit": build.Commit},
	})
	info.Set(1)

	reg.MustRegister(
		m.requests, m.duration, m.events, m.bytesStored, m.dedup,
		m.conflicts, m.reconciled, m.mirrorErrors, info,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if st != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "filestore_stored_files",
			Help: "Files currently in the store.",
		}, func() float64 {
			names, err := st.List()
			if err != nil {
				return 0
			}
			return float64(len(names))
		}))
	}
	return m
}

// RecordRequest records one finished HTTP request.
func (m *Metrics) RecordRequest(method string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordEvent counts a store mutation.
func (m *Metrics) RecordEvent(ev Event) {
	m.events.WithLabelValues(string(ev.Kind)).Inc()
	switch ev.Kind {
	case EventUpload, EventUpdate, EventDedupCopy:
		if ev.Size > 0 {
			m.bytesStored.Add(float64(ev.Size))
		}
	}
}

// RecordDedup counts a duplicate check outcome.
func (m *Metrics) RecordDedup(found bool) {
	if found {
		m.dedup.WithLabelValues("hit").Inc()
		return
	}
	m.dedup.WithLabelValues("miss").Inc()
}

// RecordConflict counts an add rejected with 409.
func (m *Metrics) RecordConflict() {
	m.conflicts.Inc()
}

// RecordReconcile counts repaired inconsistencies.
func (m *Metrics) RecordReconcile(fixed int) {
	m.reconciled.Add(float64(fixed))
}
