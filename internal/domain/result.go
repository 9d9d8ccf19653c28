package domain

import "time"

// OrderKind discriminates the two success shapes the backend can produce
// when a cart is completed.
type OrderKind string

const (
	KindOrder    OrderKind = "order"
	KindOrderSet OrderKind = "order_set"
)

// OrderResult is the single normalized output of successful finalization.
type OrderResult struct {
	Kind OrderKind
	ID   string
}

// AttemptOutcome classifies one placement attempt.
type AttemptOutcome string

const (
	OutcomeSuccess        AttemptOutcome = "SUCCESS"
	OutcomeRetryableError AttemptOutcome = "RETRYABLE_ERROR"
	OutcomeTerminalError  AttemptOutcome = "TERMINAL_ERROR"
)

// FinalizationAttempt records one pass through the placement loop. Attempts
// are held in memory for the duration of a run and never persisted.
type FinalizationAttempt struct {
	Number    int
	StartedAt time.Time
	Outcome   AttemptOutcome
	Err       error
}
