package nftexchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	executions  *prometheus.CounterVec
	checks      *prometheus.CounterVec
	fillLatency prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nftx",
				Name:      "strategy_executions_total",
				Help:      "Strategy executions by outcome",
			},
			[]string{"strategy", "selector", "outcome"},
		),
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nftx",
				Name:      "validity_checks_total",
				Help:      "Maker validity pre-checks by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		fillLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nftx",
				Name:      "fill_latency_seconds",
				Help:      "Duration of strategy executions",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
	}
}
