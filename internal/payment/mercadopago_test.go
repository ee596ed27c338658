package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provix/provix-api/internal/config"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *MercadoPago {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewMercadoPago(config.PaymentConfig{
		AccessToken:     "test-access-token",
		WebhookSecret:   "test-webhook-secret",
		BaseURL:         srv.URL,
		NotificationURL: "https://api.example.com/api/webhooks/payments",
	}, nil)
}

func TestCreateCharge(t *testing.T) {
	t.Parallel()

	t.Run("creates PIX charge", func(t *testing.T) {
		t.Parallel()
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/payments", r.URL.Path)
			assert.Equal(t, "Bearer test-access-token", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))

			var req createPaymentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "pix", req.PaymentMethodID)
			assert.InDelta(t, 9.90, req.TransactionAmount, 0.001)
			assert.Equal(t, "buyer@example.com", req.Payer.Email)
			assert.Equal(t, "txn-123", req.ExternalReference)

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{
				"id": 111222333,
				"status": "pending",
				"point_of_interaction": {
					"transaction_data": {
						"qr_code": "00020126580014br.gov.bcb.pix",
						"qr_code_base64": "aVZCT1J3MEtHZ28="
					}
				}
			}`))
		})

		charge, err := gw.CreateCharge(context.Background(), CreateChargeParams{
			AmountInCents:     990,
			PayerEmail:        "buyer@example.com",
			Description:       "Starter (10 credits)",
			ExternalReference: "txn-123",
		})
		require.NoError(t, err)

		assert.Equal(t, "111222333", charge.ID)
		assert.Equal(t, "00020126580014br.gov.bcb.pix", charge.CopyPasteCode)
		assert.Equal(t, "aVZCT1J3MEtHZ28=", charge.QRCode)
		assert.False(t, charge.ExpiresAt.IsZero())
	})

	t.Run("provider rejection", func(t *testing.T) {
		t.Parallel()
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid payer"}`))
		})

		_, err := gw.CreateCharge(context.Background(), CreateChargeParams{
			AmountInCents:     990,
			PayerEmail:        "buyer@example.com",
			ExternalReference: "txn-123",
		})
		assert.ErrorIs(t, err, ErrChargeFailed)
	})

	t.Run("response missing QR code", func(t *testing.T) {
		t.Parallel()
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id": 1, "status": "pending"}`))
		})

		_, err := gw.CreateCharge(context.Background(), CreateChargeParams{
			AmountInCents:     990,
			PayerEmail:        "buyer@example.com",
			ExternalReference: "txn-123",
		})
		assert.ErrorIs(t, err, ErrChargeFailed)
	})
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	t.Run("returns provider status", func(t *testing.T) {
		t.Parallel()
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payments/111222333", r.URL.Path)
			_, _ = w.Write([]byte(`{"id": 111222333, "status": "approved"}`))
		})

		status, err := gw.GetStatus(context.Background(), "111222333")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, status)
	})

	t.Run("unknown payment", func(t *testing.T) {
		t.Parallel()
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := gw.GetStatus(context.Background(), "999")
		assert.ErrorIs(t, err, ErrStatusQueryFailed)
	})
}
