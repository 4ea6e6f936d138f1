package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics owns a private registry so repeated construction in tests never
// collides on collector names. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	writesTotal       *prometheus.CounterVec
	skippedTotal      *prometheus.CounterVec
	partialFailures   *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		writesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_writes_total",
				Help: "Gateway writes by collection and outcome.",
			},
			[]string{"collection", "status"},
		),
		skippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_skipped_corrections_total",
				Help: "Aggregate corrections skipped because the referenced document was missing.",
			},
			[]string{"collection"},
		),
		partialFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_partial_failures_total",
				Help: "Operations that stopped after some writes were applied.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

func (m *Metrics) RecordOperation(operation string, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) IncrWrite(collection string, status string) {
	if m == nil {
		return
	}
	m.writesTotal.WithLabelValues(collection, status).Inc()
}

func (m *Metrics) IncrSkipped(collection string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrPartialFailure(operation string) {
	if m == nil {
		return
	}
	m.partialFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}
