// Package metrics exposes Prometheus collectors for the inventory core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	StockMutations   *prometheus.CounterVec
	TransferOutcomes *prometheus.CounterVec
	AlertTransitions *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
}

// New registers and returns the collectors on the given registerer.
// Pass prometheus.DefaultRegisterer in main.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StockMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodtrack_stock_mutations_total",
			Help: "Committed stock ledger mutations by reason.",
		}, []string{"reason"}),
		TransferOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodtrack_transfer_transitions_total",
			Help: "Transfer workflow transitions by resulting status.",
		}, []string{"status"}),
		AlertTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodtrack_alert_transitions_total",
			Help: "Alert status changes by new stock-level classification.",
		}, []string{"stock_alert"}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodtrack_operation_errors_total",
			Help: "Core operation failures by error code.",
		}, []string{"code"}),
	}
}
