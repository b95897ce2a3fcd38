package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forge_engine_event_process_duration_seconds",
		Help:    "Duration of event processing in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"app_id", "event_type"})

	processedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_engine_events_processed_total",
		Help: "Total number of processed events",
	}, []string{"app_id", "status"})

	ruleEvalCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_engine_rule_evaluations_total",
		Help: "Total reward rule evaluations",
	}, []string{"app_id", "matched"})
)
