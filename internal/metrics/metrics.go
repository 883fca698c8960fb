// Package metrics exposes Prometheus instruments for the engine and poller.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	built      *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	submitted  *prometheus.CounterVec
	confirmSec prometheus.Histogram
	polls      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		built: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txbuilder", Name: "transactions_built_total",
			Help: "Transaction descriptions assembled, by action.",
		}, []string{"action"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txbuilder", Name: "actions_rejected_total",
			Help: "Actions rejected before signing, by action and reason.",
		}, []string{"action", "reason"}),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txbuilder", Name: "submissions_total",
			Help: "Submitted transactions by action and outcome.",
		}, []string{"action", "outcome"}),
		confirmSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txbuilder", Name: "confirmation_seconds",
			Help:    "Time from execution to observed finality.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txbuilder", Name: "market_polls_total",
			Help: "Market-data polls by task and result (stored, discarded, error).",
		}, []string{"task", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.built, m.rejected, m.submitted, m.confirmSec, m.polls)
	}
	return m
}

func (m *Metrics) Built(action string) {
	if m == nil {
		return
	}
	m.built.WithLabelValues(action).Inc()
}

// Rejected records a pre-signing failure classified by error kind.
func (m *Metrics) Rejected(action string, err error) {
	if m == nil || err == nil {
		return
	}
	m.rejected.WithLabelValues(action, Reason(err)).Inc()
}

func (m *Metrics) Submitted(action, outcome string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) Confirmed(seconds float64) {
	if m == nil {
		return
	}
	m.confirmSec.Observe(seconds)
}

func (m *Metrics) Polled(task, result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(task, result).Inc()
}

// Reason maps an error onto a low-cardinality label.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInsufficientGasReserve):
		return "gas_reserve"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrNoSpendableCoin):
		return "no_coin"
	case errors.Is(err, domain.ErrTransactionBuild):
		return "build"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrActionInFlight):
		return "in_flight"
	case errors.Is(err, domain.ErrExecution):
		return "execution"
	}
	return "other"
}
