// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bookrec/internal/domain"
)

var (
	// HTTPRequestsTotal counts API requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RecommendationsTotal counts recommendation calls by outcome.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// RecommendDuration tracks end-to-end recommendation latency, embedding included.
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_recommend_duration_seconds",
			Help:    "Duration of recommendation calls in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// RecommendResults observes how many books a successful call returned.
	RecommendResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_recommend_results",
			Help:    "Number of books returned per successful recommendation",
			Buckets: []float64{0, 1, 4, 8, 12, 24, 48},
		},
	)
)

// Outcome labels a recommendation error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrInvalidFilter):
		return "invalid"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "index_unavailable"
	}
	return "error"
}

// ObserveRecommend records one recommendation call.
func ObserveRecommend(start time.Time, results int, err error) {
	RecommendationsTotal.WithLabelValues(Outcome(err)).Inc()
	RecommendDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		RecommendResults.Observe(float64(results))
	}
}
