// Package metrics provides Prometheus metrics for the odds and rating services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects and exposes service metrics on a private registry.
// All Record methods are safe to call on a nil *Metrics
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	OddsCards    *prometheus.CounterVec
	Predictions  *prometheus.CounterVec
	EloUpdates   *prometheus.CounterVec
	RatingChange *prometheus.HistogramVec

	// Ingestion metrics
	IngestionRuns     *prometheus.CounterVec
	IngestionRecords  *prometheus.CounterVec
	IngestionDuration *prometheus.HistogramVec
	UpstreamRequests  *prometheus.CounterVec

	// Serving metrics
	RequestDuration *prometheus.HistogramVec
}

// New creates a metrics collector with every metric registered
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		OddsCards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footstats_odds_cards_total",
				Help: "Total number of odds cards generated",
			},
			[]string{"status"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footstats_predictions_total",
				Help: "Total number of predictions generated by predicted outcome",
			},
			[]string{"outcome"},
		),
		EloUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footstats_elo_updates_total",
				Help: "Total number of fixtures applied to ELO ratings",
			},
			[]string{"mode"},
		),
		RatingChange: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "footstats_elo_rating_change",
				Help:    "Absolute rating change of the home side per applied fixture",
				Buckets: []float64{1, 2, 5, 10, 15, 20, 25, 30, 40},
			},
			[]string{},
		),

		IngestionRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footstats_ingestion_runs_total",
				Help: "Total number of ingestion runs",
			},
			[]string{"source", "status"},
		),
		IngestionRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footstats_ingestion_records_total",
				Help: "Total number of records handled by ingestion",
			},
			[]string{"source", "result"},
		),
		IngestionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "footstats_ingestion_duration_seconds",
				Help:    "Wall time of an ingestion run",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3m
			},
			[]string{"source"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footstats_upstream_requests_total",
				Help: "Requests made to upstream data providers",
			},
			[]string{"source", "code"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "footstats_request_duration_seconds",
				Help:    "Latency of served requests",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"surface", "route", "code"},
		),
	}

	m.registry.MustRegister(
		m.OddsCards,
		m.Predictions,
		m.EloUpdates,
		m.RatingChange,
		m.IngestionRuns,
		m.IngestionRecords,
		m.IngestionDuration,
		m.UpstreamRequests,
		m.RequestDuration,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordOddsCard(status string) {
	if m == nil {
		return
	}
	m.OddsCards.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordPrediction(outcome string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(outcome).Inc()
}

// RecordEloUpdate counts one applied fixture. mode is "incremental" or "rebuild"
func (m *Metrics) RecordEloUpdate(mode string, homeChange float64) {
	if m == nil {
		return
	}
	m.EloUpdates.WithLabelValues(mode).Inc()
	if homeChange < 0 {
		homeChange = -homeChange
	}
	m.RatingChange.WithLabelValues().Observe(homeChange)
}

func (m *Metrics) RecordIngestion(source, status string, processed, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.IngestionRuns.WithLabelValues(source, status).Inc()
	m.IngestionRecords.WithLabelValues(source, "processed").Add(float64(processed))
	m.IngestionRecords.WithLabelValues(source, "failed").Add(float64(failed))
	m.IngestionDuration.WithLabelValues(source).Observe(took.Seconds())
}

func (m *Metrics) RecordUpstream(source string, code int) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(source, strconv.Itoa(code)).Inc()
}

func (m *Metrics) RecordRequest(surface, route string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(surface, route, strconv.Itoa(code)).Observe(took.Seconds())
}
