package api

import (
	"net/http"

	"github.com/provix/provix-api/internal/api/shared"
	"github.com/provix/provix-api/internal/service"
)

// CreditHandler serves the credit balance and the plan catalog.
type CreditHandler struct {
	creditService  service.CreditService
	paymentService service.PaymentService
}

// NewCreditHandler creates a new CreditHandler with the given dependencies.
func NewCreditHandler(creditService service.CreditService, paymentService service.PaymentService) *CreditHandler {
	return &CreditHandler{
		creditService:  creditService,
		paymentService: paymentService,
	}
}

// GetBalance handles GET /credits/balance.
func (h *CreditHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	balance, err := h.creditService.GetBalance(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BalanceResponse{
		TotalCredits:     balance.Total,
		UsedCredits:      balance.Used,
		AvailableCredits: balance.Available,
	})
}

// ListPlans handles GET /credits/plans.
func (h *CreditHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.paymentService.ListPlans(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := make([]PlanResponse, 0, len(plans))
	for _, plan := range plans {
		resp = append(resp, PlanResponse{
			ID:           plan.ID,
			Name:         plan.Name,
			Description:  plan.Description,
			Credits:      plan.Credits,
			PriceInCents: plan.PriceInCents,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
