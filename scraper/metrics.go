package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	ItemsScrapedTotal prometheus.Counter
	PagesTotal        prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs all scraper metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricewatch_scraper_request_duration_seconds",
			Help:    "Latency of listing page requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsScraped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_scraper_items_scraped_total",
			Help: "Total number of listings extracted from result pages.",
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_scraper_pages_total",
			Help: "Total number of result pages parsed.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	if reg != nil {
		reg.MustRegister(requests, requestDuration, itemsScraped, pages, errorsTotal)
	}

	return &Metrics{
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		ItemsScrapedTotal: itemsScraped,
		PagesTotal:        pages,
		ErrorsTotal:       errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddItems adds n to the items scraped counter.
func (m *Metrics) AddItems(n int) {
	if m == nil {
		return
	}
	m.ItemsScrapedTotal.Add(float64(n))
}

// IncPages increments the parsed pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
