package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type StfixMetrics struct {
	operations    *prometheus.CounterVec
	interestPaid  prometheus.Counter
	receiptSupply prometheus.Gauge
	vaultBalances *prometheus.GaugeVec
	eventsEmitted *prometheus.CounterVec
}

var (
	stfixOnce     sync.Once
	stfixRegistry *StfixMetrics
)

func Stfix() *StfixMetrics {
	stfixOnce.Do(func() {
		stfixRegistry = &StfixMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stfix_operations_total",
				Help: "Count of protocol operations by type and result.",
			}, []string{"op", "result"}),
			interestPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stfix_interest_paid_total",
				Help: "Cumulative interest paid or compounded, in base units.",
			}),
			receiptSupply: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "stfix_receipt_supply",
				Help: "Outstanding receipt token supply.",
			}),
			vaultBalances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stfix_vault_balance",
				Help: "Current vault balances by vault.",
			}, []string{"vault"}),
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stfix_events_emitted_total",
				Help: "Count of events emitted by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			stfixRegistry.operations,
			stfixRegistry.interestPaid,
			stfixRegistry.receiptSupply,
			stfixRegistry.vaultBalances,
			stfixRegistry.eventsEmitted,
		)
	})
	return stfixRegistry
}

// ObserveOperation records the outcome of one protocol operation.
func (m *StfixMetrics) ObserveOperation(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// AddInterestPaid accumulates interest transferred or compounded.
func (m *StfixMetrics) AddInterestPaid(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.interestPaid.Add(amount)
}

// SetReceiptSupply publishes the current receipt supply.
func (m *StfixMetrics) SetReceiptSupply(supply float64) {
	if m == nil {
		return
	}
	m.receiptSupply.Set(supply)
}

// SetVaultBalance publishes a vault balance.
func (m *StfixMetrics) SetVaultBalance(vault string, balance float64) {
	if m == nil {
		return
	}
	m.vaultBalances.WithLabelValues(vault).Set(balance)
}

// ObserveEvent counts an emitted event by type.
func (m *StfixMetrics) ObserveEvent(eventType string) {
	if m == nil || eventType == "" {
		return
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}
