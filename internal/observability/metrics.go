// Package observability registers the service's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runclub",
		Subsystem: "ingest",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity upserted to Postgres.",
	})
	throttleSeconds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runclub",
		Subsystem: "strava",
		Name:      "throttle_seconds_total",
		Help:      "Seconds spent sleeping on the rate limiter, by reason.",
	}, []string{"reason"})
	webhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runclub",
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Webhook events by object/aspect and outcome.",
	}, []string{"object_type", "aspect_type", "outcome"})
	backfillPages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runclub",
		Subsystem: "backfill",
		Name:      "pages_total",
		Help:      "Backfill pages fetched from the remote API.",
	})
	queueDecodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runclub",
		Subsystem: "queue",
		Name:      "decode_errors_total",
		Help:      "Malformed queue messages committed and skipped.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(
		activityPersistGauge,
		throttleSeconds,
		webhookEvents,
		backfillPages,
		queueDecodeErrors,
	)
}

// RecordActivityPersisted updates the ingestion watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordThrottle accounts time the rate limiter is about to sleep.
func RecordThrottle(reason string, d time.Duration) {
	if d <= 0 {
		return
	}
	throttleSeconds.WithLabelValues(reason).Add(d.Seconds())
}

// RecordWebhookEvent counts one processed webhook event.
func RecordWebhookEvent(objectType, aspectType, outcome string) {
	webhookEvents.WithLabelValues(objectType, aspectType, outcome).Inc()
}

// RecordBackfillPage counts one fetched backfill page.
func RecordBackfillPage() {
	backfillPages.Inc()
}

// RecordQueueDecodeError counts one malformed queue message.
func RecordQueueDecodeError(topic string) {
	queueDecodeErrors.WithLabelValues(topic).Inc()
}
