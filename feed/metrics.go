package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lector_refresh_attempts_total",
		Help: "Number of feed fetch attempts, including retries",
	})

	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lector_refresh_failures_total",
		Help: "Number of failed feed fetch attempts",
	})

	feedsDisabled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lector_feeds_disabled_total",
		Help: "Number of feeds disabled after exhausting their retry budget",
	})

	postsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lector_posts_created_total",
		Help: "Number of new posts created during reconciliation",
	})
)
