// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	PoolsDetected prometheus.Counter
	PoolsDecoded  prometheus.Counter
	PoolsStored   prometheus.Counter
	DecodeErrors  *prometheus.CounterVec

	// Sniper metrics
	LiveTrackers    prometheus.Gauge
	BuysSubmitted   prometheus.Counter
	SellsSubmitted  prometheus.Counter
	TrackerFailures *prometheus.CounterVec
	PriceUpdates    prometheus.Counter

	// Latency metrics
	SellTriggerLatency prometheus.Histogram
	RPCCallLatency     *prometheus.HistogramVec
	WSMessageLatency   prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pool_sniper"
	}

	return &Metrics{
		// Ingestion metrics
		PoolsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pools_detected_total",
			Help:      "Total number of pool-creation log notifications detected",
		}),
		PoolsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pools_decoded_total",
			Help:      "Total number of pool-creation events decoded",
		}),
		PoolsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pools_stored_total",
			Help:      "Total number of pool records stored",
		}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "decode_errors_total",
			Help:      "Total number of decode pipeline errors by stage",
		}, []string{"stage"}),

		// Sniper metrics
		LiveTrackers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sniper",
			Name:      "live_trackers",
			Help:      "Current number of trackers in the live set",
		}),
		BuysSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sniper",
			Name:      "buys_total",
			Help:      "Total number of buy orders submitted successfully",
		}),
		SellsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sniper",
			Name:      "sells_total",
			Help:      "Total number of sell orders submitted successfully",
		}),
		TrackerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sniper",
			Name:      "tracker_failures_total",
			Help:      "Total number of tracker failures by stage",
		}, []string{"stage"}),
		PriceUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sniper",
			Name:      "price_updates_total",
			Help:      "Total number of watch-phase price evaluations",
		}),

		// Latency metrics
		SellTriggerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sniper",
			Name:      "sell_trigger_latency_seconds",
			Help:      "Time from watch start to sell trigger in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPoolDetected increments the pools detected counter.
func RecordPoolDetected() {
	DefaultMetrics.PoolsDetected.Inc()
}

// RecordPoolDecoded increments the pools decoded counter.
func RecordPoolDecoded() {
	DefaultMetrics.PoolsDecoded.Inc()
}

// RecordPoolStored increments the pools stored counter.
func RecordPoolStored() {
	DefaultMetrics.PoolsStored.Inc()
}

// RecordDecodeError records a decode pipeline error by stage.
func RecordDecodeError(stage string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(stage).Inc()
}

// SetLiveTrackers updates the live trackers gauge.
func SetLiveTrackers(n int) {
	DefaultMetrics.LiveTrackers.Set(float64(n))
}

// RecordBuy increments the buys counter.
func RecordBuy() {
	DefaultMetrics.BuysSubmitted.Inc()
}

// RecordSell increments the sells counter and observes trigger latency.
func RecordSell(triggerLatencySeconds float64) {
	DefaultMetrics.SellsSubmitted.Inc()
	DefaultMetrics.SellTriggerLatency.Observe(triggerLatencySeconds)
}

// RecordTrackerFailure records a tracker failure by stage.
func RecordTrackerFailure(stage string) {
	DefaultMetrics.TrackerFailures.WithLabelValues(stage).Inc()
}

// RecordPriceUpdate increments the price updates counter.
func RecordPriceUpdate() {
	DefaultMetrics.PriceUpdates.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSMessageLatency records WebSocket message processing latency.
func RecordWSMessageLatency(seconds float64) {
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}
