package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for scrape runs.
type Metrics struct {
	Registry         *prometheus.Registry
	RunsTotal        prometheus.Counter
	ProductsScraped  prometheus.Counter
	ProductsFailed   *prometheus.CounterVec
	ProductsExported *prometheus.CounterVec
	ExtractDuration  prometheus.Histogram
	DiscoveredURLs   prometheus.Gauge
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ddtech_runs_total",
		Help: "Total scrape runs started.",
	})
	scraped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ddtech_products_scraped_total",
		Help: "Product pages extracted successfully.",
	})
	failed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddtech_products_failed_total",
			Help: "Product pages that could not be extracted, by failure kind.",
		},
		[]string{"kind"},
	)
	exported := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddtech_products_exported_total",
			Help: "Records handed to each sink, by sink and outcome.",
		},
		[]string{"sink", "outcome"},
	)
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ddtech_extract_duration_seconds",
		Help:    "Time spent loading and extracting one product page.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
	})
	discovered := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ddtech_discovered_urls",
		Help: "Product URLs found by the most recent discovery.",
	})

	registry.MustRegister(runs, scraped, failed, exported, duration, discovered)

	return &Metrics{
		Registry:         registry,
		RunsTotal:        runs,
		ProductsScraped:  scraped,
		ProductsFailed:   failed,
		ProductsExported: exported,
		ExtractDuration:  duration,
		DiscoveredURLs:   discovered,
	}
}

func (m *Metrics) IncRun() {
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
}

func (m *Metrics) IncScraped() {
	if m == nil {
		return
	}
	m.ProductsScraped.Inc()
}

func (m *Metrics) IncFailed(kind string) {
	if m == nil {
		return
	}
	m.ProductsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddExported(sink string, ok bool, n int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.ProductsExported.WithLabelValues(sink, outcome).Add(float64(n))
}

func (m *Metrics) ObserveExtract(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractDuration.Observe(d.Seconds())
}

func (m *Metrics) SetDiscovered(n int) {
	if m == nil {
		return
	}
	m.DiscoveredURLs.Set(float64(n))
}
