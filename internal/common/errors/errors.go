// Package errors provides the standardized error taxonomy shared by the
// lifecycle, notification and payment components.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind classifies an error for policy decisions: client-facing validation,
// benign absence, data-integrity violation, or infrastructure failure.
type Kind string

const (
	KindInvalidArgument Kind = "invalid-argument"
	KindNotFound        Kind = "not-found"
	KindIntegrity       Kind = "integrity"
	KindUnavailable     Kind = "unavailable"
	KindInternal        Kind = "internal"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSubscriptionNotFound  ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeSubscriptionIntegrity ErrorCode = "SUBSCRIPTION_INTEGRITY"
	ErrCodeSweepCommitFailed     ErrorCode = "SWEEP_COMMIT_FAILED"

	ErrCodeStoreQueryFailed ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"

	ErrCodePaymentInvalidArgument ErrorCode = "PAYMENT_INVALID_ARGUMENT"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeEventParseFailed       ErrorCode = "EVENT_PARSE_FAILED"
	ErrCodeEventSchemaInvalid     ErrorCode = "EVENT_SCHEMA_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Kind      Kind      `json:"kind"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Err
}

// E builds a StandardError without a cause.
func E(kind Kind, code ErrorCode, message string) *StandardError {
	return &StandardError{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Retryable: kind == KindUnavailable,
		Timestamp: time.Now().UTC(),
	}
}

// Wrap builds a StandardError around an underlying cause.
func Wrap(kind Kind, code ErrorCode, message string, err error) *StandardError {
	se := E(kind, code, message)
	se.Err = err
	return se
}

// KindOf extracts the Kind from an error chain, or KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// CodeOf extracts the ErrorCode from an error chain, empty when unclassified.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}
