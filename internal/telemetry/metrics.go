// Package telemetry exposes prometheus metrics for the task pipeline and
// the payment webhook.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	TasksClaimed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_tasks_claimed_total", Help: "Tasks claimed for processing"})
	TasksCompleted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_tasks_completed_total", Help: "Tasks finished as completed"})
	TasksFailed     = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_tasks_failed_total", Help: "Tasks finished as failed"})
	SlotSuccess     = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_slots_success_total", Help: "Account slots provisioned successfully"})
	SlotFailure     = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_slots_failed_total", Help: "Account slots failed after retries"})
	SlotRetries     = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_slot_retries_total", Help: "Provisioning retries across all slots"})
	CreditsDebited  = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_credits_debited_total", Help: "Credits debited for settled tasks"})
	CreditsGranted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_credits_granted_total", Help: "Credits granted from confirmed payments"})
	WebhookAccepted = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_webhook_accepted_total", Help: "Webhook notifications that confirmed a payment"})
	WebhookSkipped  = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_webhook_skipped_total", Help: "Webhook notifications acknowledged without effect"})
	WebhookRejected = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_webhook_rejected_total", Help: "Webhook notifications rejected as malformed or unverified"})
	TasksInFlight   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "provix_tasks_inflight", Help: "Tasks currently being processed"})

	TransactionsExpired = prometheus.NewCounter(prometheus.CounterOpts{Name: "provix_transactions_expired_total", Help: "Pending transactions expired after their PIX charge lapsed"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			TasksClaimed,
			TasksCompleted,
			TasksFailed,
			SlotSuccess,
			SlotFailure,
			SlotRetries,
			CreditsDebited,
			CreditsGranted,
			WebhookAccepted,
			WebhookSkipped,
			WebhookRejected,
			TasksInFlight,
			TransactionsExpired,
		)
	})
	return promhttp.Handler()
}
