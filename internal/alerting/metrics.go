package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quotedesk",
		Subsystem: "alerting",
		Name:      "evaluation_runs_total",
		Help:      "Completed alert evaluation passes.",
	})

	alertsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quotedesk",
		Subsystem: "alerting",
		Name:      "alerts_triggered_total",
		Help:      "Alert records opened.",
	})
)
