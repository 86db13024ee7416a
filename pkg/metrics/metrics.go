// Package metrics provides Prometheus metrics for position lifecycle actions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeOK         = "ok"
	OutcomeInvalid    = "invalid"
	OutcomeSimulation = "simulation"
	OutcomeTransport  = "transport"
	OutcomeTimeout    = "timeout"
	OutcomeFailed     = "failed"
	OutcomeAborted    = "aborted"
)

type Metrics struct {
	QuotesTotal      *prometheus.CounterVec
	SubmissionsTotal *prometheus.CounterVec
	ProgramErrors    *prometheus.CounterVec
	SubmitDuration   *prometheus.HistogramVec
	RPCFetchDuration *prometheus.HistogramVec
	PlanSteps        *prometheus.HistogramVec
	LastConfirmed    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers all metrics on reg. A nil reg uses a fresh registry.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "lpmanager"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		QuotesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "total",
			Help:      "Quotes computed by kind and outcome",
		}, []string{"kind", "outcome"}),
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "total",
			Help:      "Lifecycle submissions by action and outcome",
		}, []string{"action", "outcome"}),
		ProgramErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "program_errors_total",
			Help:      "Custom program errors seen in simulation or on chain",
		}, []string{"action", "error"}),
		SubmitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "duration_seconds",
			Help:      "Time from build to confirmation",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"action"}),
		RPCFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "fetch_duration_seconds",
			Help:      "Account fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"account"}),
		PlanSteps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "steps",
			Help:      "Instructions per built plan",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{"action"}),
		LastConfirmed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_confirmed_unix_seconds",
			Help:      "Time of the last confirmed submission",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveQuote(kind, outcome string) {
	m.QuotesTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveSubmit(action, outcome string, started time.Time) {
	m.SubmissionsTotal.WithLabelValues(action, outcome).Inc()
	m.SubmitDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
	if outcome == OutcomeOK {
		m.LastConfirmed.SetToCurrentTime()
	}
}

func (m *Metrics) ObserveProgramError(action, name string) {
	m.ProgramErrors.WithLabelValues(action, name).Inc()
}

func (m *Metrics) ObserveFetch(account string, started time.Time) {
	m.RPCFetchDuration.WithLabelValues(account).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObservePlan(action string, steps int) {
	m.PlanSteps.WithLabelValues(action).Observe(float64(steps))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
