// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"CoinSentinel/internal/model"
)

const namespace = "coinsentinel"

// Metrics groups every collector the service updates.
type Metrics struct {
	EvaluationsTotal      *prometheus.CounterVec
	InsufficientDataTotal prometheus.Counter
	FetchErrorsTotal      *prometheus.CounterVec
	EvaluationDuration    prometheus.Histogram
	NotificationsTotal    *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EvaluationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Signal evaluations by overall signal.",
		}, []string{"signal"}),
		InsufficientDataTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_data_total",
			Help:      "Evaluations skipped because the history was too short.",
		}),
		FetchErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Price history fetch failures by source.",
		}, []string{"source"}),
		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent fetching and analyzing one asset.",
			Buckets:   prometheus.DefBuckets,
		}),
		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveReport records one finished evaluation.
func (m *Metrics) ObserveReport(rep *model.Report, took time.Duration) {
	if m == nil || rep == nil || rep.Signal == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(string(rep.Signal.Signal)).Inc()
	m.EvaluationDuration.Observe(took.Seconds())
}

// ObserveInsufficient records an evaluation that had too little data.
func (m *Metrics) ObserveInsufficient() {
	if m == nil {
		return
	}
	m.InsufficientDataTotal.Inc()
}

// ObserveFetchError records a failed provider call.
func (m *Metrics) ObserveFetchError(source string) {
	if m == nil {
		return
	}
	m.FetchErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveNotification records a notification attempt.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.NotificationsTotal.WithLabelValues(outcome).Inc()
}
