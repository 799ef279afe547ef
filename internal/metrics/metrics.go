// Package metrics holds the prometheus collectors for the relay pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookrelay_webhooks_received_total",
			Help: "Inbound webhook calls that passed channel lookup and authentication",
		},
		[]string{"channel"},
	)

	WebhooksRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookrelay_webhooks_rejected_total",
			Help: "Inbound webhook calls rejected before processing",
		},
		[]string{"reason"},
	)

	WebhooksForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookrelay_webhooks_forwarded_total",
			Help: "Webhook notifications delivered to the notifier",
		},
		[]string{"channel"},
	)

	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookrelay_delivery_failures_total",
			Help: "Notifier sends that failed or were skipped for lack of a destination",
		},
		[]string{"channel"},
	)

	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hookrelay_send_duration_seconds",
			Help:    "Duration of notifier sends in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuditAppendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookrelay_audit_append_errors_total",
			Help: "Audit record appends that failed",
		},
	)
)
