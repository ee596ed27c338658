// Package payment integrates with the PIX payment provider. The rest of
// the system consumes the Gateway interface only; the Mercado Pago HTTP
// adapter is one implementation of it.
package payment

import (
	"context"
	"errors"
	"time"
)

// Payment status values reported by the provider. Only StatusApproved
// triggers a credit grant; everything else is acknowledged without effect.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// Gateway errors.
var (
	// ErrChargeFailed is returned when the provider rejects a charge request.
	ErrChargeFailed = errors.New("failed to create PIX charge")

	// ErrStatusQueryFailed is returned when the provider cannot report a
	// payment's status.
	ErrStatusQueryFailed = errors.New("failed to query payment status")
)

// CreateChargeParams describes the PIX charge to create.
type CreateChargeParams struct {
	AmountInCents int

	// PayerEmail identifies the paying user to the provider.
	PayerEmail string

	// Description is the human-readable charge label.
	Description string

	// ExternalReference correlates the provider charge back to our
	// transaction row.
	ExternalReference string
}

// Charge is the provider's response to a charge request.
type Charge struct {
	// ID is the provider-side payment identifier.
	ID string

	// QRCode is the base64 PNG rendering of the PIX code.
	QRCode string

	// CopyPasteCode is the raw PIX payload for manual entry.
	CopyPasteCode string

	ExpiresAt time.Time
}

// Gateway creates PIX charges and reports authoritative payment status.
// The webhook path always re-queries GetStatus instead of trusting the
// status carried by the notification payload.
type Gateway interface {
	CreateCharge(ctx context.Context, params CreateChargeParams) (*Charge, error)
	GetStatus(ctx context.Context, paymentID string) (string, error)
}
