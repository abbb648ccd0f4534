// Package metrics объявляет prometheus-счётчики приложения.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы обработки webhook-событий.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

var (
	// WebhookEvents счётчик webhook-событий по типу и исходу обработки.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studysnap_webhook_events_total",
		Help: "Payment processor webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})

	// EntitlementVerdicts счётчик вычисленных вердиктов о доступе.
	EntitlementVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studysnap_entitlement_verdicts_total",
		Help: "Entitlement resolutions by verdict.",
	}, []string{"verdict"})
)
