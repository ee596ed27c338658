package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/service"
)

func newChargedTransaction(t *testing.T, userID uuid.UUID) *domain.Transaction {
	t.Helper()
	txn, err := domain.NewTransaction(userID, uuid.New(), 990)
	require.NoError(t, err)
	txn.ExternalID = "mp-123"
	txn.QRCode = "aVZCT1I="
	txn.CopyPasteCode = "00020126pix"
	expires := time.Now().UTC().Add(15 * time.Minute)
	txn.ExpiresAt = &expires
	return txn
}

func TestTransactionHandlerCreateTransaction(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	planID := uuid.New()
	body := `{"plan_id":"` + planID.String() + `"}`

	t.Run("returns PIX charge details", func(t *testing.T) {
		t.Parallel()
		h := NewTransactionHandler(&stubPaymentService{txn: newChargedTransaction(t, userID)})

		req := asUser(httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp TransactionResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, 990, resp.AmountInCents)
		assert.Equal(t, "00020126pix", resp.CopyPasteCode)
		assert.NotNil(t, resp.ExpiresAt)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		h := NewTransactionHandler(&stubPaymentService{createErr: service.ErrPlanNotFound})

		req := asUser(httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects malformed plan id", func(t *testing.T) {
		t.Parallel()
		h := NewTransactionHandler(&stubPaymentService{})

		req := asUser(httptest.NewRequest(http.MethodPost, "/transactions",
			strings.NewReader(`{"plan_id":"not-a-uuid"}`)), userID)
		rec := httptest.NewRecorder()
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()
		h := NewTransactionHandler(&stubPaymentService{})

		req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTransactionHandlerGetTransaction(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns owned transaction", func(t *testing.T) {
		t.Parallel()
		txn := newChargedTransaction(t, userID)
		h := NewTransactionHandler(&stubPaymentService{txn: txn})

		req := withPathParam(asUser(httptest.NewRequest(http.MethodGet, "/transactions/"+txn.ID.String(), nil), userID), "id", txn.ID.String())
		rec := httptest.NewRecorder()
		h.GetTransaction(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp TransactionResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, txn.ID, resp.ID)
	})

	t.Run("other user's transaction", func(t *testing.T) {
		t.Parallel()
		h := NewTransactionHandler(&stubPaymentService{getErr: service.ErrNotOwned})

		id := uuid.New().String()
		req := withPathParam(asUser(httptest.NewRequest(http.MethodGet, "/transactions/"+id, nil), userID), "id", id)
		rec := httptest.NewRecorder()
		h.GetTransaction(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCreditHandler(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("returns balance", func(t *testing.T) {
		t.Parallel()
		h := NewCreditHandler(&stubCreditService{balance: &domain.CreditBalance{
			UserID:    userID,
			Total:     50,
			Used:      12,
			Available: 38,
		}}, &stubPaymentService{})

		req := asUser(httptest.NewRequest(http.MethodGet, "/credits/balance", nil), userID)
		rec := httptest.NewRecorder()
		h.GetBalance(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp BalanceResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, 50, resp.TotalCredits)
		assert.Equal(t, 12, resp.UsedCredits)
		assert.Equal(t, 38, resp.AvailableCredits)
	})

	t.Run("balance requires authentication", func(t *testing.T) {
		t.Parallel()
		h := NewCreditHandler(&stubCreditService{}, &stubPaymentService{})

		req := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
		rec := httptest.NewRecorder()
		h.GetBalance(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("lists plans", func(t *testing.T) {
		t.Parallel()
		h := NewCreditHandler(&stubCreditService{}, &stubPaymentService{plans: []*domain.CreditPlan{
			{ID: uuid.New(), Name: "Starter", Credits: 10, PriceInCents: 990, IsActive: true},
			{ID: uuid.New(), Name: "Standard", Credits: 50, PriceInCents: 3990, IsActive: true},
		}})

		req := asUser(httptest.NewRequest(http.MethodGet, "/credits/plans", nil), userID)
		rec := httptest.NewRecorder()
		h.ListPlans(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []PlanResponse
		decodeBody(t, rec, &resp)
		require.Len(t, resp, 2)
		assert.Equal(t, "Starter", resp[0].Name)
	})
}
