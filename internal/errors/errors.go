// Package errors defines the error taxonomy of the checkout service. Handlers map these
// types to HTTP responses in one place; everything else wraps them with %w.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound               = stderrors.New("not found")
	ErrEmptyPromoCode         = stderrors.New("promo code is empty")
	ErrNoVariationSelected    = stderrors.New("no variation selected")
	ErrSubmissionInProgress   = stderrors.New("order submission already in progress")
	ErrPromoCheckInProgress   = stderrors.New("promo code validation already in progress")
	ErrSessionClosed          = stderrors.New("checkout session closed")
	ErrAlreadySubmitted       = stderrors.New("order already submitted for this session")
	ErrPaymentLinkUnavailable = stderrors.New("order created but payment link not available, please contact support")
	ErrIdempotencyConflict    = stderrors.New("request with this idempotency key is already in progress")
	ErrUnauthorized           = stderrors.New("unauthorized")
)

// SubmissionFailedMessage is shown to the customer whenever order creation fails.
const SubmissionFailedMessage = "Failed to place order. Please try again."

// ValidationError reports a local validation failure. It never reaches the network.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// DefaultPromoRejection is used when the collaborator gave no reason.
const DefaultPromoRejection = "Invalid promo code"

// PromoRejectedError carries the collaborator's rejection reason verbatim.
type PromoRejectedError struct {
	Code   string
	Detail string
	Cause  error
}

func (e *PromoRejectedError) Error() string {
	if e.Detail == "" {
		return DefaultPromoRejection
	}
	return e.Detail
}

func (e *PromoRejectedError) Unwrap() error {
	return e.Cause
}

// SubmissionFailedError wraps any network or server failure during order creation.
type SubmissionFailedError struct {
	Cause error
}

func NewSubmissionFailedError(cause error) *SubmissionFailedError {
	return &SubmissionFailedError{Cause: cause}
}

func (e *SubmissionFailedError) Error() string {
	if e.Cause == nil {
		return SubmissionFailedMessage
	}
	return SubmissionFailedMessage + ": " + e.Cause.Error()
}

func (e *SubmissionFailedError) Unwrap() error {
	return e.Cause
}

// UpstreamError is returned by HTTP clients for non-success responses.
type UpstreamError struct {
	Service    string
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// Is, As and New forward to the standard library so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

func New(text string) error { return stderrors.New(text) }
