package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "poster_intake"

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Poster submissions by outcome",
		},
		[]string{"status"},
	)

	ScreeningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screenings_total",
			Help:      "Screening calls by safety verdict or failure mode",
		},
		[]string{"result"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extraction calls by parse outcome",
		},
		[]string{"result"},
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_gateway_duration_seconds",
			Help:      "Latency of model gateway calls including retries",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"status"},
	)

	AdminNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_notifications_total",
			Help:      "Moderation alerts by delivery result",
		},
		[]string{"result"},
	)

	AnalyticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Tracked analytics events by kind and whether they were persisted",
		},
		[]string{"kind", "result"},
	)

	RecencyKeysPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recency_keys_pruned_total",
			Help:      "Expired analytics dedup keys removed",
		},
	)
)
