package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncOpportunity("simulation", true)
	m.IncOpportunity("simulation", true)
	m.IncTrade("simulation", "WIN")
	m.IncOrder("kalshi", "failed")
	m.SetAccount(1012.5, 12.5)
	m.IncCycleError("sync")
	m.ObserveCycle("live", 20*time.Millisecond)
	m.SetQueueDepths(3, 2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.opportunities.WithLabelValues("simulation", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trades.WithLabelValues("simulation", "WIN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues("kalshi", "failed")))
	assert.Equal(t, 1012.5, testutil.ToFloat64(m.bankroll))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.totalPnL))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycleErrors.WithLabelValues("sync")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("logs")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycleDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncOpportunity("live", false)
		m.IncTrade("live", "PENDING")
		m.IncOrder("kalshi", "placed")
		m.SetAccount(1, 1)
		m.IncCycleError("scan")
		m.ObserveCycle("live", time.Second)
		m.SetQueueDepths(0, 0, 0)
	})
}

func TestMetrics_NilRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).IncTrade("simulation", "LOSS")
	})
}
