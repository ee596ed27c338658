package api

import (
	"errors"
	"net/http"

	"github.com/provix/provix-api/internal/api/shared"
	"github.com/provix/provix-api/internal/payment"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/service"
	"github.com/provix/provix-api/internal/telemetry"
)

// WebhookHandler receives payment notifications from the PIX provider.
//
// The endpoint is unauthenticated but signature-verified, and must be safe
// against redelivery: the provider retries until it sees a 2xx. Payments
// not yet linked to a transaction get a 404 so the retries keep coming
// until the link exists.
type WebhookHandler struct {
	paymentService service.PaymentService
	webhookSecret  string
}

// NewWebhookHandler creates a new WebhookHandler with the given dependencies.
func NewWebhookHandler(paymentService service.PaymentService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		webhookSecret:  webhookSecret,
	}
}

// HandlePaymentNotification handles POST /webhooks/payments.
//
// Mercado Pago sends the payment ID as the data.id query parameter and
// signs it together with the x-request-id header and a timestamp.
func (h *WebhookHandler) HandlePaymentNotification(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	dataID := r.URL.Query().Get("data.id")
	if dataID == "" {
		// Non-payment event types carry no data.id; acknowledge and move on.
		if r.URL.Query().Get("type") != "payment" {
			shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		telemetry.WebhookRejected.Inc()
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing data.id")
		return
	}

	err := payment.VerifyWebhookSignature(
		h.webhookSecret,
		r.Header.Get("x-signature"),
		r.Header.Get("x-request-id"),
		dataID,
	)
	if err != nil {
		telemetry.WebhookRejected.Inc()
		log.Warn("webhook signature verification failed",
			"error", err,
			"payment_id", dataID)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid signature")
		return
	}

	outcome, err := h.paymentService.ConfirmPayment(r.Context(), dataID)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			// No transaction carries this payment ID yet. The first
			// notification can land before the charge's external ID is
			// recorded, so 404 keeps the provider retrying instead of
			// dropping a paid payment.
			telemetry.WebhookSkipped.Inc()
			log.Warn("webhook for unknown payment", "payment_id", dataID)
			shared.RespondWithError(w, r, http.StatusNotFound, "Unknown payment")
			return
		}
		telemetry.WebhookRejected.Inc()
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to process notification", err)
		return
	}

	switch outcome {
	case service.ConfirmGranted:
		telemetry.WebhookAccepted.Inc()
	default:
		telemetry.WebhookSkipped.Inc()
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "processed"})
}
