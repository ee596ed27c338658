package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provix/provix-api/internal/service"
)

const webhookTestSecret = "webhook-test-secret-0123456789"

func signedWebhookRequest(paymentID string) *http.Request {
	const (
		requestID = "req-abc-123"
		ts        = "1738000000"
	)

	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	fmt.Fprintf(mac, "id:%s;request-id:%s;ts:%s;", paymentID, requestID, ts)
	v1 := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost,
		"/webhooks/payments?type=payment&data.id="+paymentID, nil)
	req.Header.Set("x-request-id", requestID)
	req.Header.Set("x-signature", fmt.Sprintf("ts=%s,v1=%s", ts, v1))
	return req
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	t.Run("confirms approved payment", func(t *testing.T) {
		t.Parallel()
		svc := &stubPaymentService{outcome: service.ConfirmGranted}
		h := NewWebhookHandler(svc, webhookTestSecret)

		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, signedWebhookRequest("mp-123"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Equal(t, "processed", resp["status"])
		assert.Equal(t, []string{"mp-123"}, svc.confirmed)
	})

	t.Run("redelivery still returns 200", func(t *testing.T) {
		t.Parallel()
		svc := &stubPaymentService{outcome: service.ConfirmAlreadyProcessed}
		h := NewWebhookHandler(svc, webhookTestSecret)

		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, signedWebhookRequest("mp-123"))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects invalid signature", func(t *testing.T) {
		t.Parallel()
		svc := &stubPaymentService{}
		h := NewWebhookHandler(svc, "a-different-secret-entirely-here")

		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, signedWebhookRequest("mp-123"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.confirmed)
	})

	t.Run("rejects missing signature", func(t *testing.T) {
		t.Parallel()
		h := NewWebhookHandler(&stubPaymentService{}, webhookTestSecret)

		req := httptest.NewRequest(http.MethodPost,
			"/webhooks/payments?type=payment&data.id=mp-123", nil)
		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects payment event without data.id", func(t *testing.T) {
		t.Parallel()
		h := NewWebhookHandler(&stubPaymentService{}, webhookTestSecret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments?type=payment", nil)
		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ignores non-payment events", func(t *testing.T) {
		t.Parallel()
		svc := &stubPaymentService{}
		h := NewWebhookHandler(svc, webhookTestSecret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments?type=test", nil)
		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Equal(t, "ignored", resp["status"])
		assert.Empty(t, svc.confirmed)
	})

	t.Run("unknown payment returns 404 so the provider retries", func(t *testing.T) {
		t.Parallel()
		svc := &stubPaymentService{confirmErr: service.ErrTransactionNotFound}
		h := NewWebhookHandler(svc, webhookTestSecret)

		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, signedWebhookRequest("mp-unknown"))

		// The notification can beat the write that records the charge's
		// external ID; 404 keeps the provider redelivering until the
		// transaction is findable.
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("server fault returns 500 so the provider retries", func(t *testing.T) {
		t.Parallel()
		svc := &stubPaymentService{confirmErr: errors.New("database unavailable")}
		h := NewWebhookHandler(svc, webhookTestSecret)

		rec := httptest.NewRecorder()
		h.HandlePaymentNotification(rec, signedWebhookRequest("mp-123"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
