// Package metrics holds the Prometheus collectors for the store, backups and
// the loopback HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dnd_master"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	storeMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Document mutations by collection and operation.",
		},
		[]string{"collection", "op"},
	)

	storePersist = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_total",
			Help:      "Persist attempts by result (ok, error, skipped).",
		},
		[]string{"result"},
	)

	storeDocumentBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "document_bytes",
			Help:      "Size of the last persisted document.",
		},
	)

	backupRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "runs_total",
			Help:      "Scheduled backup runs by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		storeMutations,
		storePersist,
		storeDocumentBytes,
		backupRuns,
		httpRequests,
		httpDuration,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordMutation(collection, op string) {
	storeMutations.WithLabelValues(collection, op).Inc()
}

// RecordPersist counts a persist attempt; size is only recorded on success.
func RecordPersist(result string, size int) {
	storePersist.WithLabelValues(result).Inc()
	if result == "ok" {
		storeDocumentBytes.Set(float64(size))
	}
}

func RecordBackup(err error) {
	if err != nil {
		backupRuns.WithLabelValues("error").Inc()
		return
	}
	backupRuns.WithLabelValues("ok").Inc()
}

// ObserveHTTP records a finished request. route should be the route pattern,
// not the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
