package metrics

import (
	"errors"
	"testing"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Built("mint")
	m.Built("mint")
	m.Rejected("mint", &domain.InsufficientBalanceError{})
	m.Polled("orderbook", "discarded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.built.WithLabelValues("mint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("mint", "insufficient_balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("orderbook", "discarded")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Built("x")
		m.Rejected("x", errors.New("boom"))
		m.Submitted("x", "ok")
		m.Confirmed(1)
		m.Polled("x", "stored")
	})
}

func TestReason(t *testing.T) {
	assert.Equal(t, "validation", Reason(domain.NewValidationError("a", "b")))
	assert.Equal(t, "gas_reserve", Reason(&domain.InsufficientGasReserveError{}))
	assert.Equal(t, "in_flight", Reason(domain.ErrActionInFlight))
	assert.Equal(t, "other", Reason(errors.New("x")))
}
