package application

import (
	"context"
	"errors"
	"strings"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
	"github.com/mkalinowski/storefront-finalizer/internal/infrastructure/store"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient ErrorCategory = "TRANSIENT"
	CategoryTerminal  ErrorCategory = "TERMINAL"
)

// transientMessagePatterns is the auditable set of backend error messages
// known to indicate a race with asynchronous payment settlement rather than
// an application bug. Matching is case-insensitive substring.
//
// Keep this list short and deliberate: every entry here buys the shopper up
// to three extra placement attempts.
var transientMessagePatterns = []string{
	"more information is required",
	"internal server error",
}

// CategorizePlacementError determines whether an order placement failure is
// worth retrying within the attempt budget.
func CategorizePlacementError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	// Context errors: the run was cancelled or timed out locally, there is
	// no point in further attempts within this run.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTerminal
	}

	// An unrecognized success shape is evidence of a backend/client version
	// mismatch; retry once more before giving up.
	if domain.IsErrorCode(err, domain.ErrCodeUnrecognizedResult) {
		return CategoryTransient
	}

	if storeErr, ok := store.IsStoreError(err); ok {
		if storeErr.StatusCode >= 500 {
			return CategoryTransient
		}
		if matchesTransientPattern(storeErr.Message) {
			return CategoryTransient
		}
		return CategoryTerminal
	}

	if matchesTransientPattern(err.Error()) {
		return CategoryTransient
	}

	// Anything else (validation, permission, malformed request) will not
	// resolve with time.
	return CategoryTerminal
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	return CategorizePlacementError(err) == CategoryTransient
}

func matchesTransientPattern(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pattern := range transientMessagePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
