// Package ops provides the operational HTTP surface: liveness and readiness
// probes plus Prometheus metrics for the ingest pipeline.
package ops

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/syncsoftco/tickr/internal/archive"
	"github.com/syncsoftco/tickr/internal/domain"
)

// Metrics holds the Prometheus instruments for the ingest pipeline.
type Metrics struct {
	CandlesFetched  *prometheus.CounterVec
	ShardWrites     *prometheus.CounterVec
	ConflictRetries prometheus.Counter
	GapsDetected    prometheus.Counter
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
}

// NewMetrics registers the ingest instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CandlesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickr",
			Subsystem: "ingest",
			Name:      "candles_fetched_total",
			Help:      "Candles fetched from the market source, by symbol and timeframe",
		}, []string{"symbol", "timeframe"}),
		ShardWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickr",
			Subsystem: "ingest",
			Name:      "shard_writes_total",
			Help:      "Shard write outcomes by status",
		}, []string{"status"}),
		ConflictRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tickr",
			Subsystem: "ingest",
			Name:      "conflict_retries_total",
			Help:      "Shard write attempts repeated after a version conflict",
		}),
		GapsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tickr",
			Subsystem: "ingest",
			Name:      "gaps_detected_total",
			Help:      "Interval gaps observed in written shards",
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickr",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingest runs by result",
		}, []string{"result"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tickr",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one ingest run",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveRun folds one ingest run's outcomes into the instruments.
func (m *Metrics) ObserveRun(symbol string, tf domain.Timeframe, writes []archive.ShardWrite, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(elapsed.Seconds())

	for _, w := range writes {
		m.CandlesFetched.WithLabelValues(symbol, tf.String()).Add(float64(w.Candles))
		m.ShardWrites.WithLabelValues(string(w.Status)).Inc()
		if w.Attempts > 1 {
			m.ConflictRetries.Add(float64(w.Attempts - 1))
		}
		m.GapsDetected.Add(float64(w.Gaps))
	}
}
