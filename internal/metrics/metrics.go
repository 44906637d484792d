package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// #region metrics
// Metrics exposes Prometheus collectors for roleplay activity. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	turns              *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	generationFailures *prometheus.CounterVec
	resistanceSurfaced *prometheus.CounterVec
	sessionsActive     prometheus.Gauge
}

// MustNewMetrics registers the collectors on reg. Collectors that are already
// registered are reused so several services can share one registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		turns: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "turns_total",
			Help:      "Turns processed by outcome (ok, degraded, abandoned).",
		}, []string{"outcome"})),
		generationDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roleplay",
			Name:      "generation_duration_seconds",
			Help:      "Latency of calls to the text generation provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"})),
		generationFailures: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "generation_failures_total",
			Help:      "Generation attempts that failed, by reason.",
		}, []string{"reason"})),
		resistanceSurfaced: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "resistance_surfaced_total",
			Help:      "Counterpart replies classified as objections, by category.",
		}, []string{"category"})),
		sessionsActive: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roleplay",
			Name:      "sessions_active",
			Help:      "Sessions created and not yet ended in this process.",
		})),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// #endregion metrics

// #region recorders
// ObserveTurn counts one processed turn.
func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records one provider call.
func (m *Metrics) ObserveGeneration(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(provider, status).Observe(d.Seconds())
}

// IncGenerationFailure counts a failed generation attempt.
func (m *Metrics) IncGenerationFailure(reason string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(reason).Inc()
}

// IncResistance counts a reply that carried an objection.
func (m *Metrics) IncResistance(category string) {
	if m == nil {
		return
	}
	m.resistanceSurfaced.WithLabelValues(category).Inc()
}

// SessionStarted and SessionEnded move the active-sessions gauge.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// #endregion recorders
