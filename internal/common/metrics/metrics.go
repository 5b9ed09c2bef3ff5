// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScreeningTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_turns_total",
			Help: "Total number of conversation turns by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	ScreeningTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_stage_transitions_total",
			Help: "Total number of stage transitions",
		},
		[]string{"from", "to"},
	)

	ScreeningDisqualificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_disqualifications_total",
			Help: "Total number of automatic disqualifications by gating category",
		},
		[]string{"category"},
	)

	ScreeningUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_uploads_total",
			Help: "Total number of document uploads by type and outcome",
		},
		[]string{"document_type", "outcome"},
	)

	ScreeningTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screening_turn_duration_seconds",
			Help:    "Duration of turn processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)
