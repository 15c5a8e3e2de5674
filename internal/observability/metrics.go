// Package observability provides Prometheus metrics for the indexer.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric exported by the process.
type Metrics struct {
	SwapEventsProcessed      prometheus.Counter
	LiquidityEventsProcessed prometheus.Counter
	DuplicateEventsSkipped   prometheus.Counter
	EventProcessingErrors    *prometheus.CounterVec

	BlocksBehind         *prometheus.GaugeVec
	CursorBlock          *prometheus.GaugeVec
	ActiveIndexers       prometheus.Gauge
	IndexerStartFailures prometheus.Counter
	RPCCallLatency       *prometheus.HistogramVec
	BackfillBatches      prometheus.Counter

	CandlesUpdated *prometheus.CounterVec
	StatsRefreshes *prometheus.CounterVec
}

// NewMetrics registers all metrics on reg. Pass nil to register on the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	const namespace = "dexstream"

	return &Metrics{
		SwapEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "swap_events_processed_total",
			Help:      "Total number of swap events decoded and handled",
		}),
		LiquidityEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "liquidity_events_processed_total",
			Help:      "Total number of liquidity modification events decoded and handled",
		}),
		DuplicateEventsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "duplicate_events_skipped_total",
			Help:      "Total number of events dropped because they were already stored",
		}),
		EventProcessingErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "event_processing_errors_total",
			Help:      "Total number of event processing errors by event type",
		}, []string{"event_type"}),

		BlocksBehind: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "blocks_behind",
			Help:      "Distance between chain head and the pool cursor",
		}, []string{"pool"}),
		CursorBlock: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "cursor_block",
			Help:      "Last block persisted for a pool cursor",
		}, []string{"pool"}),
		ActiveIndexers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "active_pools",
			Help:      "Number of pools with a running indexer loop",
		}),
		IndexerStartFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "start_failures_total",
			Help:      "Total number of pools skipped because their indexer failed to start",
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ethereum RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		BackfillBatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "backfill_batches_total",
			Help:      "Total number of backfill log batches fetched",
		}),

		CandlesUpdated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "updated_total",
			Help:      "Total number of candle updates by timeframe",
		}, []string{"timeframe"}),
		StatsRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "refreshes_total",
			Help:      "Total number of 24h stats refreshes by status",
		}, []string{"status"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
