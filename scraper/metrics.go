package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scrape engine.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RowsAddedTotal  prometheus.Counter
	AbsencesTotal   *prometheus.CounterVec
	BatchesTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vessel_scraper_requests_total",
			Help: "Total SOAP requests issued, by category.",
		},
		[]string{"category"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vessel_scraper_request_duration_seconds",
			Help:    "SOAP request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	rowsAdded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vessel_scraper_rows_added_total",
			Help: "Total rows merged into the compiled datasets.",
		},
	)
	absences := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vessel_scraper_absences_total",
			Help: "Total ids that yielded no usable record, by reason.",
		},
		[]string{"reason"},
	)
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vessel_scraper_batches_total",
			Help: "Total batches processed, by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requests, requestDuration, rowsAdded, absences, batches)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RowsAddedTotal:  rowsAdded,
		AbsencesTotal:   absences,
		BatchesTotal:    batches,
	}
}

// IncRequest increments the request counter for a category.
func (m *Metrics) IncRequest(category string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(category).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRows increments the merged-row counter.
func (m *Metrics) AddRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsAddedTotal.Add(float64(n))
}

// IncAbsence increments the absence counter for a reason label.
func (m *Metrics) IncAbsence(reason string) {
	if m == nil {
		return
	}
	m.AbsencesTotal.WithLabelValues(reason).Inc()
}

// IncBatch increments the batch counter for an outcome label.
func (m *Metrics) IncBatch(outcome string) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(outcome).Inc()
}
