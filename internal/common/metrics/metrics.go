// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubscriptionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions transitioned to expired by the sweep",
		},
	)

	IntegrityErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_integrity_errors_total",
			Help: "Total number of sweep-matched subscriptions skipped for missing foreign ids",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notification intents dispatched, by event type",
		},
		[]string{"event_type"},
	)

	NotificationSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_send_failures_total",
			Help: "Total number of per-token delivery failures, by channel",
		},
		[]string{"channel"},
	)

	LifecycleRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "lifecycle_run_duration_seconds",
			Help: "Duration of lifecycle entry-point runs in seconds",
		},
		[]string{"operation"},
	)
)
