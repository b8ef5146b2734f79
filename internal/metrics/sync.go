package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "searchsync"

// Engine and sync pipeline Prometheus metrics.
var (
	EngineOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_operations_total",
			Help:      "Total number of engine operations",
		},
		[]string{"driver", "op", "status"},
	)

	EngineOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"driver", "op"},
	)

	EngineDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_documents_total",
			Help:      "Records sent to or removed from the engine",
		},
		[]string{"driver", "op"},
	)

	SyncIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_intents_total",
			Help:      "Synchronization intents decided from lifecycle events",
		},
		[]string{"model", "op"},
	)

	DispatchUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_units_total",
			Help:      "Units of work enqueued and executed",
		},
		[]string{"kind", "stage", "status"}, // stage: "enqueue" / "execute"
	)

	ReconcileMissingTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_missing_total",
			Help:      "Search hits dropped because no live record matched",
		},
		[]string{"model"},
	)
)

var syncMetricsRegistered bool

// RegisterSyncMetrics registers engine and sync metrics. Must be called once from main.
func RegisterSyncMetrics() {
	if syncMetricsRegistered {
		return
	}
	prometheus.MustRegister(EngineOperationsTotal)
	prometheus.MustRegister(EngineOperationDuration)
	prometheus.MustRegister(EngineDocumentsTotal)
	prometheus.MustRegister(SyncIntentsTotal)
	prometheus.MustRegister(DispatchUnitsTotal)
	prometheus.MustRegister(ReconcileMissingTotal)
	syncMetricsRegistered = true
}

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
