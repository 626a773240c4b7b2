// Package metrics defines the Prometheus collectors for recognition and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for scans.
type Metrics struct {
	ScansTotal      *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	MatchesTotal    prometheus.Counter
	EntityMatches   *prometheus.CounterVec
	ScannedRunes    prometheus.Counter
	DictionaryKeys  prometheus.Gauge
	GrammarReloads  *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	registry prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry, which Handler then serves.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nertrie_scans_total",
				Help: "Total scans by result (ok, error).",
			},
			[]string{"result"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nertrie_scan_duration_seconds",
				Help:    "Scan latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		MatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nertrie_matches_total",
				Help: "Total accepted entity matches.",
			},
		),
		EntityMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nertrie_entity_matches_total",
				Help: "Accepted matches per entity id.",
			},
			[]string{"entity"},
		),
		ScannedRunes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nertrie_scanned_runes_total",
				Help: "Total characters scanned.",
			},
		),
		DictionaryKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nertrie_dictionary_keys",
				Help: "Number of distinct surface forms in the active dictionary.",
			},
		),
		GrammarReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nertrie_grammar_reloads_total",
				Help: "Grammar reloads by result (ok, error).",
			},
			[]string{"result"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nertrie_http_requests_total",
				Help: "Total number of HTTP requests by path and status.",
			},
			[]string{"path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nertrie_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"path"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.ScansTotal,
		m.ScanDuration,
		m.MatchesTotal,
		m.EntityMatches,
		m.ScannedRunes,
		m.DictionaryKeys,
		m.GrammarReloads,
		m.RequestsTotal,
		m.RequestDuration,
	)
	return m
}

// ObserveScan records one finished scan.
func (m *Metrics) ObserveScan(runes int, ids [][]string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(took.Seconds())
	m.ScannedRunes.Add(float64(runes))
	if err != nil {
		m.ScansTotal.WithLabelValues("error").Inc()
		return
	}
	m.ScansTotal.WithLabelValues("ok").Inc()
	m.MatchesTotal.Add(float64(len(ids)))
	for _, match := range ids {
		for _, id := range match {
			m.EntityMatches.WithLabelValues(id).Inc()
		}
	}
}

// Handler returns the Prometheus scrape HTTP handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
