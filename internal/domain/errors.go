package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Finalization error codes
const (
	ErrCodeMissingSession      = "MISSING_SESSION"
	ErrCodeCartNotResolvable   = "CART_NOT_RESOLVABLE"
	ErrCodeCartLookup          = "CART_LOOKUP"
	ErrCodeNoPaymentCollection = "NO_PAYMENT_COLLECTION"
	ErrCodePaymentFailed       = "PAYMENT_FAILED"
	ErrCodeUnknownStatus       = "UNKNOWN_STATUS"
	ErrCodeUnrecognizedResult  = "UNRECOGNIZED_RESULT"
	ErrCodeRetriesExhausted    = "RETRIES_EXHAUSTED"
	ErrCodeAlreadyRunning      = "ALREADY_RUNNING"
)

func NewMissingSessionError(provider Provider) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingSession,
		Message: fmt.Sprintf("%s return carries no session or external order id", provider),
	}
}

func NewCartNotResolvableError(referenceKey string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCartNotResolvable,
		Message: fmt.Sprintf("no cart id could be resolved for reference %q", referenceKey),
	}
}

func NewCartLookupError(cartID string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeCartLookup,
		Message: fmt.Sprintf("cart %s could not be fetched", cartID),
		Err:     err,
	}
}

func NewNoPaymentCollectionError(cartID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoPaymentCollection,
		Message: fmt.Sprintf("cart %s has no payment collection", cartID),
	}
}

func NewPaymentFailedError(provider Provider, rawStatus string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentFailed,
		Message: fmt.Sprintf("%s reported payment failure (status %q)", provider, rawStatus),
	}
}

func NewUnknownStatusError(provider Provider, rawStatus string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnknownStatus,
		Message: fmt.Sprintf("%s returned unrecognized payment status %q", provider, rawStatus),
	}
}

func NewUnrecognizedResultError() *DomainError {
	return &DomainError{
		Code:    ErrCodeUnrecognizedResult,
		Message: "order placement returned an unrecognized result shape",
	}
}

func NewRetriesExhaustedError(attempts int, last error) *DomainError {
	return &DomainError{
		Code:    ErrCodeRetriesExhausted,
		Message: fmt.Sprintf("order placement failed after %d attempts", attempts),
		Err:     last,
	}
}

func NewAlreadyRunningError(cartID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAlreadyRunning,
		Message: fmt.Sprintf("finalization already in progress for cart %s", cartID),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
