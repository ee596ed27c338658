package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT used for API authorization.
	AccessToken string `json:"token"`

	// RefreshToken is the JWT used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token
// refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BalanceResponse is the credit ledger view returned to the user.
type BalanceResponse struct {
	TotalCredits     int `json:"total_credits"`
	UsedCredits      int `json:"used_credits"`
	AvailableCredits int `json:"available_credits"`
}

// PlanResponse is one purchasable credit plan.
type PlanResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Credits      int       `json:"credits"`
	PriceInCents int       `json:"price_in_cents"`
}

// CreateTransactionRequest defines the payload for starting a credit purchase.
type CreateTransactionRequest struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

// TransactionResponse is a credit purchase with its PIX charge details.
type TransactionResponse struct {
	ID            uuid.UUID  `json:"id"`
	PlanID        uuid.UUID  `json:"plan_id"`
	AmountInCents int        `json:"amount_in_cents"`
	Status        string     `json:"status"`
	QRCode        string     `json:"qr_code,omitempty"`
	CopyPasteCode string     `json:"copy_paste_code,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewTransactionResponse maps a domain transaction to its API shape.
func NewTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            txn.ID,
		PlanID:        txn.PlanID,
		AmountInCents: txn.AmountInCents,
		Status:        string(txn.Status),
		QRCode:        txn.QRCode,
		CopyPasteCode: txn.CopyPasteCode,
		ExpiresAt:     txn.ExpiresAt,
		PaidAt:        txn.PaidAt,
		CreatedAt:     txn.CreatedAt,
	}
}

// CreateTaskRequest defines the payload for submitting an account creation
// task.
type CreateTaskRequest struct {
	InviteLink string `json:"invite_link" validate:"required,url"`
	Quantity   int    `json:"quantity"    validate:"required,min=1,max=100"`
}

// TaskResponse is a task summary.
type TaskResponse struct {
	ID                uuid.UUID  `json:"id"`
	InviteLink        string     `json:"invite_link"`
	QuantityRequested int        `json:"quantity_requested"`
	QuantityCompleted int        `json:"quantity_completed"`
	QuantityFailed    int        `json:"quantity_failed"`
	Status            string     `json:"status"`
	ProgressPercent   int        `json:"progress_percent"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewTaskResponse maps a domain task to its API shape.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:                task.ID,
		InviteLink:        task.InviteLink,
		QuantityRequested: task.QuantityRequested,
		QuantityCompleted: task.QuantityCompleted,
		QuantityFailed:    task.QuantityFailed,
		Status:            string(task.Status),
		ProgressPercent:   task.ProgressPercent(),
		StartedAt:         task.StartedAt,
		CompletedAt:       task.CompletedAt,
		CreatedAt:         task.CreatedAt,
	}
}

// TaskLogResponse is one account slot's outcome within a task.
type TaskLogResponse struct {
	AccountNumber int        `json:"account_number"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	ProjectID     string     `json:"project_id,omitempty"`
	ProjectURL    string     `json:"project_url,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// TaskProgressResponse is a task together with its per-slot logs.
type TaskProgressResponse struct {
	TaskResponse
	Logs []TaskLogResponse `json:"logs"`
}
