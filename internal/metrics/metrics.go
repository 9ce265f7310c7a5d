// Package metrics exposes Prometheus collectors for the budget service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "paycheck"

type Metrics struct {
	registry *prometheus.Registry

	mutations       *prometheus.CounterVec
	contributions   *prometheus.CounterVec
	persistFailures prometheus.Counter
	notifyFailures  prometheus.Counter
	exports         *prometheus.CounterVec
	httpRejected    *prometheus.CounterVec
	flexMoney       *prometheus.GaugeVec
	goalRemaining   prometheus.Gauge
}

// New creates collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Budget mutations applied, by operation.",
		}, []string{"operation"}),
		contributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contribution_amount_total",
			Help:      "Savings contributions in pesos, requested and applied, by cutoff.",
		}, []string{"cutoff", "kind"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Snapshot saves that failed.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Change notifications that could not be published.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Spreadsheet exports by result.",
		}, []string{"result"}),
		httpRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rejected_total",
			Help:      "HTTP requests refused before reaching a handler, by reason.",
		}, []string{"reason"}),
		flexMoney: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flex_money",
			Help:      "Flex money per cutoff as of the last report.",
		}, []string{"cutoff"}),
		goalRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goal_remaining",
			Help:      "Amount still needed for the savings goal as of the last report.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutations,
		m.contributions,
		m.persistFailures,
		m.notifyFailures,
		m.exports,
		m.httpRejected,
		m.flexMoney,
		m.goalRemaining,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) IncMutation(operation string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveContribution(cutoff string, requested, applied decimal.Decimal) {
	if m == nil {
		return
	}
	if requested.IsPositive() {
		m.contributions.WithLabelValues(cutoff, "requested").Add(requested.InexactFloat64())
	}
	if applied.IsPositive() {
		m.contributions.WithLabelValues(cutoff, "applied").Add(applied.InexactFloat64())
	}
}

func (m *Metrics) IncPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) IncNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *Metrics) ObserveExport(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.exports.WithLabelValues(result).Inc()
}

// IncRejected counts a request refused by middleware (rate_limit, suspicious).
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.httpRejected.WithLabelValues(reason).Inc()
}

// SetFlexMoney records the flex money of one cutoff.
func (m *Metrics) SetFlexMoney(cutoff string, v decimal.Decimal) {
	if m == nil {
		return
	}
	m.flexMoney.WithLabelValues(cutoff).Set(v.InexactFloat64())
}

func (m *Metrics) SetGoalRemaining(v decimal.Decimal) {
	if m == nil {
		return
	}
	m.goalRemaining.Set(v.InexactFloat64())
}
