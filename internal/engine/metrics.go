package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curlbot_escalation_actions_total",
			Help: "Moderation actions performed, by action kind.",
		},
		[]string{"action"},
	)
	actionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curlbot_escalation_action_errors_total",
			Help: "Moderation actions that failed at the platform, by action kind.",
		},
		[]string{"action"},
	)
	casesClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curlbot_cases_closed_total",
			Help: "Posts leaving monitoring, by reason.",
		},
		[]string{"reason"},
	)
)
