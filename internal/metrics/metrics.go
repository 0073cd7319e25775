// Package metrics exposes Prometheus counters for the parts of the system
// worth watching in production: listing churn, match recomputation volume
// and notification delivery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ListingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leedslink_listings_created_total",
		Help: "Number of listings created.",
	})

	MatchComputations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leedslink_match_computations_total",
		Help: "Number of per-user match aggregate recomputations.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leedslink_notifications_sent_total",
		Help: "Number of notifications raised, by kind.",
	}, []string{"kind"})

	RatingsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leedslink_ratings_submitted_total",
		Help: "Number of ratings submitted (including replacements).",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
