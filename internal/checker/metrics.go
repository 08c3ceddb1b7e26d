package checker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curlbot_ticks_total",
			Help: "Checker ticks run, by outcome.",
		},
		[]string{"status"},
	)
	postsScannedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curlbot_posts_scanned_total",
			Help: "Posts run through the escalation engine.",
		},
	)
	postsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curlbot_posts_skipped_total",
			Help: "Posts skipped because their case is already closed.",
		},
	)
	postFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curlbot_post_failures_total",
			Help: "Posts whose platform side effects failed during a tick.",
		},
	)
	configFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curlbot_config_failures_total",
			Help: "Ticks aborted because no usable rule was available.",
		},
	)
)
