package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerResults = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "crimeshield",
		Subsystem: "analysis",
		Name:      "provider_results_total",
		Help:      "Analysis provider calls by provider and outcome.",
	},
	[]string{"provider", "status"},
)
