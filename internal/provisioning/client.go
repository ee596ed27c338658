// Package provisioning defines the capability interface for creating one
// external account plus project through automation, and the tagged error
// kinds the task pipeline branches on. The real browser-automation driver
// lives outside this repository; the pipeline depends only on the Client
// interface.
package provisioning

import (
	"context"
	"errors"
	"fmt"
)

// Request carries everything one provisioning attempt needs.
type Request struct {
	InviteLink  string
	Email       string
	Password    string
	ProjectName string
}

// Result is the outcome of one provisioning attempt.
type Result struct {
	Success    bool
	ProjectID  string
	ProjectURL string
}

// Client attempts to create one account and project. Implementations must
// be safely retryable: retrying after a transient failure may leave an
// extra abandoned attempt on the external site but must not corrupt state.
type Client interface {
	Attempt(ctx context.Context, req Request) (*Result, error)
}

// ErrorKind tags a provisioning failure so the retry policy and the task
// state machine can branch deterministically instead of matching on error
// strings.
type ErrorKind string

// Failure classifications.
const (
	// KindRetryable marks transient failures: network errors, timeouts,
	// and automation-engine unavailability.
	KindRetryable ErrorKind = "retryable"

	// KindPermanent marks failures that will not succeed on retry, such
	// as a rejected or expired invite link.
	KindPermanent ErrorKind = "permanent"

	// KindFatal marks failures that prevent provisioning from running at
	// all; the whole task aborts rather than the single slot.
	KindFatal ErrorKind = "fatal"
)

// Error is a provisioning failure with a kind tag.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provisioning failed (%s): %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("provisioning failed (%s): %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying. Used by the
// retry package's advisory classification.
func (e *Error) Retryable() bool {
	return e.Kind == KindRetryable
}

// NewError creates a tagged provisioning error.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the error kind, defaulting to retryable for untagged
// errors so unexpected failures still get the bounded retry treatment.
func KindOf(err error) ErrorKind {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Kind
	}
	return KindRetryable
}

// IsFatal reports whether the error should abort the whole task.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}
