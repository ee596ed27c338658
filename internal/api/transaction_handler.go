package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/api/shared"
	"github.com/provix/provix-api/internal/service"
)

// TransactionHandler serves the credit purchase endpoints.
type TransactionHandler struct {
	paymentService service.PaymentService
	validator      *validator.Validate
}

// NewTransactionHandler creates a new TransactionHandler with the given
// dependencies.
func NewTransactionHandler(paymentService service.PaymentService) *TransactionHandler {
	return &TransactionHandler{
		paymentService: paymentService,
		validator:      validator.New(),
	}
}

// CreateTransaction handles POST /transactions: start a credit purchase and
// return the PIX charge to present to the user.
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateTransactionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid plan_id")
		return
	}

	txn, err := h.paymentService.CreateTransaction(r.Context(), userID, planID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewTransactionResponse(txn))
}

// GetTransaction handles GET /transactions/{id}.
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, txnID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	txn, err := h.paymentService.GetTransaction(r.Context(), userID, txnID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTransactionResponse(txn))
}

// ListTransactions handles GET /transactions.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	txns, err := h.paymentService.ListTransactions(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		resp = append(resp, NewTransactionResponse(txn))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
