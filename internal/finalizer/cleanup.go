package finalizer

import (
	"context"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// Cleanup removes the stored cart reference once finalization has produced
// a canonical order result. It deletes every key the reference may have been
// written under (session id and external order id), is safe to call more
// than once, and is never called on a failure path: a terminal error must
// leave the reference fully intact so a manual retry reuses the same cart.
func (s *Service) Cleanup(ctx context.Context, event domain.PaymentReturnEvent) {
	keys := make([]string, 0, 2)
	if event.SessionID != "" {
		keys = append(keys, event.SessionID)
	}
	if event.ExternalOrderID != "" && event.ExternalOrderID != event.SessionID {
		keys = append(keys, event.ExternalOrderID)
	}

	for _, key := range keys {
		if err := s.refs.Delete(ctx, key); err != nil {
			// Best effort: a stale reference expires on its own.
			s.logger.Warn("failed to delete cart reference",
				"key", key,
				"cart_id", event.CartID,
				"error", err,
			)
		}
	}
}
