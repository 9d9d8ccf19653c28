package finalizer

import (
	"context"
)

// terminalPaymentStatuses are payment collection statuses that need no
// further polling.
var terminalPaymentStatuses = map[string]bool{
	"authorized": true,
	"captured":   true,
	"completed":  true,
	"canceled":   true,
	"failed":     true,
}

// pollPaymentStatus checks the payment collection status on a fixed interval
// until it reaches a terminal value or the check budget runs out. When the
// budget runs out the flow proceeds anyway: forward progress is deliberately
// preferred over certainty, and the caller surfaces the assumption as a
// distinct AssumedComplete outcome rather than silent success.
func (s *Service) pollPaymentStatus(ctx context.Context, collectionID string) (status string, assumed bool, err error) {
	for check := 1; check <= s.pollCfg.MaxChecks; check++ {
		status, err = s.store.FetchPaymentStatus(ctx, collectionID)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			s.logger.Warn("payment status check failed",
				"payment_collection_id", collectionID,
				"check", check,
				"error", err,
			)
		} else if terminalPaymentStatuses[status] {
			return status, false, nil
		}

		if check < s.pollCfg.MaxChecks {
			if err := s.sched.Sleep(ctx, s.pollCfg.Interval); err != nil {
				return "", false, err
			}
		}
	}

	s.logger.Info("payment status poll budget exhausted, assuming complete",
		"payment_collection_id", collectionID,
		"checks", s.pollCfg.MaxChecks,
		"last_status", status,
	)
	return status, true, nil
}

// isDefinitive reports whether a polled status confirms authorization.
func isDefinitive(status string) bool {
	switch status {
	case "authorized", "captured", "completed":
		return true
	default:
		return false
	}
}
