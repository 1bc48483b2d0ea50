package monitor

import (
	"github.com/aluiziolira/pricewatch/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for monitor cycles.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	PriceDropsTotal prometheus.Counter
	SnapshotRecords prometheus.Gauge
	LastSuccess     prometheus.Gauge
	CycleDuration   prometheus.Histogram
}

// NewMetrics constructs the monitor metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_runs_total",
			Help: "Total monitor cycles by outcome.",
		},
		[]string{"outcome"},
	)
	drops := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_price_drops_total",
			Help: "Total price drop events reported.",
		},
	)
	records := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricewatch_snapshot_records",
			Help: "Number of records in the most recently saved snapshot.",
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricewatch_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that saved a snapshot.",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricewatch_cycle_duration_seconds",
			Help:    "Wall time of a monitor cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	if reg != nil {
		reg.MustRegister(runs, drops, records, lastSuccess, duration)
	}

	return &Metrics{
		RunsTotal:       runs,
		PriceDropsTotal: drops,
		SnapshotRecords: records,
		LastSuccess:     lastSuccess,
		CycleDuration:   duration,
	}
}

func (m *Metrics) observe(result *models.RunResult, saved bool) {
	if m == nil || result == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(result.Outcome)).Inc()
	m.PriceDropsTotal.Add(float64(len(result.Events)))
	m.CycleDuration.Observe(result.EndTime.Sub(result.StartTime).Seconds())
	if saved {
		m.SnapshotRecords.Set(float64(result.Records))
		m.LastSuccess.Set(float64(result.EndTime.Unix()))
	}
}
