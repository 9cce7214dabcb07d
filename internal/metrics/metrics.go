// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	InsightDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devboard_insight_generation_seconds",
			Help:    "Time spent computing insight snapshots and dashboards",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
		[]string{"kind"}, // kind: snapshot, dashboard, heatmap
	)

	InsightCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devboard_insight_cache_lookups_total",
			Help: "Insight snapshot cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	RemindersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devboard_reminders_fired_total",
			Help: "Reminders emitted by the evaluator",
		},
		[]string{"band"},
	)

	RemindersSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devboard_reminders_suppressed_total",
			Help: "In-band reminders skipped because the band already fired",
		},
		[]string{"band"},
	)

	ReminderPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devboard_reminder_pass_seconds",
			Help:    "Duration of one reminder evaluation pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devboard_notifications_created_total",
			Help: "Notifications added to the store",
		},
		[]string{"type"},
	)

	NotificationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devboard_notification_events_total",
			Help: "Push events handled by the dispatcher",
		},
		[]string{"event", "result"}, // result: delivered, dropped, failed
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devboard_websocket_connections",
			Help: "Currently open websocket connections",
		},
	)

	QueueJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devboard_queue_jobs_total",
			Help: "Queue jobs processed by type and outcome",
		},
		[]string{"type", "result"}, // result: enqueued, success, failed, expired
	)

	DLQPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devboard_dlq_purged_total",
			Help: "Dead-lettered jobs removed after the retention period",
		},
	)

	HTTPRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devboard_http_rejections_total",
			Help: "Requests refused by middleware before reaching a handler",
		},
		[]string{"reason"}, // panic, content_type, too_large, unauthorized, rate_limited
	)
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records a finished HTTP request
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveInsight records how long an insight computation took
func ObserveInsight(kind string, duration time.Duration) {
	InsightDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCacheLookup counts a snapshot cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	InsightCacheLookups.WithLabelValues(result).Inc()
}

// RecordNotificationEvent counts a dispatcher outcome
func RecordNotificationEvent(event, result string) {
	NotificationEvents.WithLabelValues(event, result).Inc()
}

// RecordQueueJob counts a queue job outcome
func RecordQueueJob(jobType, result string) {
	QueueJobs.WithLabelValues(jobType, result).Inc()
}

// RecordRejection counts a request refused by middleware
func RecordRejection(reason string) {
	HTTPRejections.WithLabelValues(reason).Inc()
}
