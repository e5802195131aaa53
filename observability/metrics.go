package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type dealMetrics struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	created       *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	feesWithdrawn prometheus.Counter
}

var (
	dealMetricsOnce sync.Once
	dealRegistry    *dealMetrics
)

// Deals returns the lazily-initialised registry tracking escrow engine
// activity.
func Deals() *dealMetrics {
	dealMetricsOnce.Do(func() {
		dealRegistry = &dealMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dealchain",
				Subsystem: "deals",
				Name:      "operations_total",
				Help:      "Deal operations segmented by deal type, operation and outcome kind.",
			}, []string{"deal_type", "operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "dealchain",
				Subsystem: "deals",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for deal operations including the ledger commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"deal_type", "operation"}),
			created: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dealchain",
				Subsystem: "deals",
				Name:      "created_total",
				Help:      "Deals created segmented by deal type.",
			}, []string{"deal_type"}),
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dealchain",
				Subsystem: "deals",
				Name:      "transitions_total",
				Help:      "Committed deal state changes segmented by deal type, operation and resulting state.",
			}, []string{"deal_type", "operation", "state"}),
			feesWithdrawn: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "dealchain",
				Subsystem: "admin",
				Name:      "fee_withdrawals_total",
				Help:      "Count of fee withdrawals that moved a non-zero amount.",
			}),
		}
		prometheus.MustRegister(
			dealRegistry.operations,
			dealRegistry.latency,
			dealRegistry.created,
			dealRegistry.transitions,
			dealRegistry.feesWithdrawn,
		)
	})
	return dealRegistry
}

// ObserveOperation records one engine call. kind is the error kind returned
// by the engine, empty on success.
func (m *dealMetrics) ObserveOperation(dealType, operation, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	dealType = normalizeLabel(dealType)
	operation = normalizeLabel(operation)
	outcome := "ok"
	if kind != "" {
		outcome = kind
	}
	m.operations.WithLabelValues(dealType, operation, outcome).Inc()
	m.latency.WithLabelValues(dealType, operation).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
