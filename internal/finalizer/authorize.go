package finalizer

import (
	"context"
	"time"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

type authContext struct {
	attempt int
	reauth  bool
}

// authorize issues (or re-issues) the authorization call for the payment
// collection, then enforces the settling delay that bounds the window in
// which the backend's asynchronous processing catches up. The call is
// advisory: the backend may already hold the authorization through a webhook
// that raced this request, so non-2xx responses are logged and absorbed,
// never escalated.
func (s *Service) authorize(
	ctx context.Context,
	collectionID string,
	event domain.PaymentReturnEvent,
	method domain.PaymentMethod,
	ac authContext,
) {
	payload := domain.AuthorizationPayload{
		SessionID:        event.SessionID,
		CartID:           event.CartID,
		PaymentMethod:    method,
		ProviderOrderRef: event.ExternalOrderID,
		ForceStatus:      "authorized",
		FullyAuthorized:  true,
		RequiresMore:     false,
		ReconciledAt:     time.Now().UTC(),
		Attempt:          ac.attempt,
		Reauthorization:  ac.reauth,
	}
	if ac.reauth {
		// Second nudge: the gateway redirect beat its own webhook, force the
		// flow state forward so the backend accepts the late confirmation.
		payload.FlowState = "completed"
	}

	if _, err := s.store.AuthorizePaymentCollection(ctx, collectionID, payload); err != nil {
		s.logger.Warn("authorization call failed, proceeding anyway",
			"payment_collection_id", collectionID,
			"cart_id", event.CartID,
			"attempt", ac.attempt,
			"reauthorization", ac.reauth,
			"error", err,
		)
	}

	// A cancelled settle surfaces at the caller's next scheduled wait.
	_ = s.sched.Sleep(ctx, s.finCfg.SettleDelay)
}
