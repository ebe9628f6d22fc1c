// Package stats exposes prometheus instruments for the payment surface.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutSessionsTotal counts checkout session creations by outcome.
	CheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotr",
		Subsystem: "pay",
		Name:      "checkout_sessions_total",
		Help:      "Total checkout session creation attempts by outcome.",
	}, []string{"outcome"})

	// WebhookEventsTotal counts webhook deliveries by event type and outcome.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotr",
		Subsystem: "pay",
		Name:      "webhook_events_total",
		Help:      "Total Stripe webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})

	// WebhookDuration tracks webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spotr",
		Subsystem: "pay",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})
)
