package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BarsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mismartera_bars_processed_total",
			Help: "Number of bars drained from the stream queues.",
		},
		[]string{"symbol", "interval"},
	)

	DerivedBarsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mismartera_derived_bars_generated_total",
			Help: "Number of derived bars emitted by the data processor.",
		},
		[]string{"symbol", "interval"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mismartera_queue_depth",
			Help: "Current depth of a (symbol, interval) bar queue.",
		},
		[]string{"symbol", "interval"},
	)

	SymbolLagSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mismartera_symbol_lag_seconds",
			Help: "Seconds the most recent bar of a symbol lags the virtual clock.",
		},
		[]string{"symbol"},
	)

	SessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mismartera_session_active",
			Help: "1 while the session is active for external readers.",
		},
	)

	DataQuality = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mismartera_data_quality_percent",
			Help: "Quality score of a (symbol, interval), 0-100.",
		},
		[]string{"symbol", "interval"},
	)

	OutOfOrderBars = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mismartera_out_of_order_bars_total",
			Help: "Bars rejected for non-monotonic timestamps.",
		},
		[]string{"symbol", "interval"},
	)
)

func init() {
	prometheus.MustRegister(
		BarsProcessed,
		DerivedBarsGenerated,
		QueueDepth,
		SymbolLagSeconds,
		SessionActive,
		DataQuality,
		OutOfOrderBars,
	)
}
