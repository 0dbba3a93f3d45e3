package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlerRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crimeshield",
		Subsystem: "crawler",
		Name:      "runs_total",
		Help:      "Number of crawler runs started.",
	})

	crawlerRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crimeshield",
		Subsystem: "crawler",
		Name:      "running",
		Help:      "1 while a crawl is in progress.",
	})

	crawlerArticles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crimeshield",
		Subsystem: "crawler",
		Name:      "articles_total",
		Help:      "Articles handled by the crawler, by result.",
	}, []string{"result"})
)
