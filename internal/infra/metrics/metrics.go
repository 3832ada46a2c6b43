package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts ingest attempts by final result
	// (applied, duplicate, stale, skipped, invalid, upstream_error, metadata_incomplete).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Payment webhook notifications by ingest result.",
	}, []string{"result"})

	// AlertsFired counts emitted threshold alerts.
	AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_alerts_fired_total",
		Help: "Usage threshold alerts emitted.",
	}, []string{"resource_kind", "threshold"})

	// LimitDenials counts denied usage increments.
	LimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_limit_denials_total",
		Help: "Usage increments denied, by resource kind and reason.",
	}, []string{"resource_kind", "reason"})
)
