package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	txDelivered prometheus.Counter
	txFailed    prometheus.Counter
	opDelivered prometheus.Counter
	tasksSwept  prometheus.Counter
	blockHeight prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		txDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "transactions_delivered_total",
			Help:      "Number of successfully delivered transactions.",
		}),
		txFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "transactions_failed_total",
			Help:      "Number of rejected transactions.",
		}),
		opDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "operations_delivered_total",
			Help:      "Number of operations applied as part of delivered transactions.",
		}),
		tasksSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "cron_tasks_executed_total",
			Help:      "Number of scheduled tasks executed by the end of block sweep.",
		}),
		blockHeight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "block_height",
			Help:      "Height of the block being processed.",
		}),
	}
}
