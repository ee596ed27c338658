// Package service provides application-level services for credits,
// payment transactions, and provisioning tasks.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrInsufficientCredits indicates the user lacks the credits a task
	// submission requires. API layer maps this to HTTP 412.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrNotOwned indicates a resource is owned by a different user than
	// the one making the request. API layer maps this to HTTP 403.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrTaskNotCancellable indicates a cancel request arrived after the
	// task left the pending state. API layer maps this to HTTP 409.
	ErrTaskNotCancellable = errors.New("only pending tasks can be cancelled")

	// ErrPlanNotFound indicates the requested credit plan does not exist
	// or is inactive. API layer maps this to HTTP 404.
	ErrPlanNotFound = errors.New("credit plan not found")

	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTransactionNotFound indicates the requested transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
)
