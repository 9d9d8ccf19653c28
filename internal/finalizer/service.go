// Package finalizer converts an authorized payment into a confirmed order
// after the shopper returns from an external payment gateway. The three
// parties involved (browser, gateway, commerce backend) are only eventually
// consistent with each other; the service absorbs that inconsistency window
// through advisory authorization nudges, settling delays, and a bounded
// idempotent placement loop instead of treating every race as a failure.
package finalizer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
	"github.com/mkalinowski/storefront-finalizer/internal/config"
	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// Result is the canonical output of a successful finalization run.
type Result struct {
	Order   domain.OrderResult
	Method  domain.PaymentMethod
	CartID  string
	Assumed bool // payment status was never confirmed, poll budget ran out
}

type Service struct {
	store   application.StoreClient
	refs    application.CartReferenceStore
	sched   application.Scheduler
	finCfg  config.FinalizeConfig
	pollCfg config.PollerConfig
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewService(
	store application.StoreClient,
	refs application.CartReferenceStore,
	sched application.Scheduler,
	finCfg config.FinalizeConfig,
	pollCfg config.PollerConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		refs:     refs,
		sched:    sched,
		finCfg:   finCfg,
		pollCfg:  pollCfg,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Run executes one finalization for a gateway return event. It is not
// re-entrant per cart: a second concurrent run for the same cart is rejected
// before any side effect. The stored cart reference is deleted only after a
// canonical order result is produced; every failure leaves it intact so a
// reload can retry with the same cart.
func (s *Service) Run(ctx context.Context, event domain.PaymentReturnEvent) (*Result, error) {
	if !event.HasIdentity() {
		return nil, application.NewParseError(domain.NewMissingSessionError(event.Provider))
	}

	cartID, err := s.resolveCartID(ctx, event)
	if err != nil {
		return nil, application.NewTerminalError(err)
	}
	event.CartID = cartID

	if !s.acquire(cartID) {
		return nil, application.NewAlreadyActiveError(domain.NewAlreadyRunningError(cartID))
	}
	defer s.release(cartID)

	cart, err := s.fetchCart(ctx, event)
	if err != nil {
		return nil, application.NewTerminalError(err)
	}

	if cart.PaymentCollection == nil {
		return nil, application.NewTerminalError(domain.NewNoPaymentCollectionError(cartID))
	}
	collection := cart.PaymentCollection

	session := pickSession(collection.PaymentSessions, event.SessionID)
	method := ClassifyPaymentMethod(session.ProviderID, s.logger)

	s.logger.Info("starting finalization",
		"provider", event.Provider,
		"cart_id", cartID,
		"session_id", event.SessionID,
		"payment_collection_id", collection.ID,
		"method", method,
	)

	assumed := false
	if event.Provider == domain.ProviderPayU {
		// PayU's redirect routinely beats its own webhook; give the backend
		// a bounded window to record the authorization before nudging it.
		status, capReached, err := s.pollPaymentStatus(ctx, collection.ID)
		if err != nil {
			return nil, application.NewTerminalError(err)
		}
		assumed = capReached
		if !capReached && !isDefinitive(status) {
			s.logger.Warn("payment reached a non-success terminal status, proceeding to placement",
				"cart_id", cartID,
				"status", status,
			)
		}
	}

	// Initial authorization. Success is advisory: the backend may have
	// already recorded it through an asynchronous webhook.
	s.authorize(ctx, collection.ID, event, method, authContext{attempt: 1})

	// Staged settling delays between user-visible progress steps. The
	// authorization side effect is asynchronous relative to the HTTP
	// response that triggered it.
	if err := s.settle(ctx, 2); err != nil {
		return nil, application.NewTerminalError(err)
	}

	order, err := s.placeOrder(ctx, collection.ID, event, method)
	if err != nil {
		return nil, application.NewTerminalError(err)
	}

	s.Cleanup(ctx, event)

	return &Result{
		Order:   *order,
		Method:  method,
		CartID:  cartID,
		Assumed: assumed,
	}, nil
}

// placeOrder is the bounded retry loop around the backend's idempotent
// order placement. On attempt n > 1 it backs off linearly and re-issues the
// authorization nudge on even attempts only.
func (s *Service) placeOrder(
	ctx context.Context,
	collectionID string,
	event domain.PaymentReturnEvent,
	method domain.PaymentMethod,
) (*domain.OrderResult, error) {
	idempotencyKey := uuid.New().String()
	var lastErr error
	unrecognized := 0

	for attempt := 1; attempt <= s.finCfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sched.Sleep(ctx, s.finCfg.RetryStep*time.Duration(attempt)); err != nil {
				return nil, err
			}
			if attempt%2 == 0 {
				s.authorize(ctx, collectionID, event, method, authContext{attempt: attempt, reauth: true})
			}
		}

		started := time.Now()
		raw, err := s.store.CompleteCart(ctx, event.CartID, idempotencyKey)
		if err != nil {
			if !application.IsRetryable(err) {
				s.logAttempt(event.CartID, domain.FinalizationAttempt{
					Number: attempt, StartedAt: started, Outcome: domain.OutcomeTerminalError, Err: err,
				})
				return nil, err
			}
			lastErr = err
			s.logAttempt(event.CartID, domain.FinalizationAttempt{
				Number: attempt, StartedAt: started, Outcome: domain.OutcomeRetryableError, Err: err,
			})
			continue
		}

		order := Normalize(raw)
		if order == nil {
			unrecognized++
			lastErr = domain.NewUnrecognizedResultError()
			s.logger.Error("order placement returned unrecognized shape",
				"cart_id", event.CartID,
				"attempt", attempt,
				"raw", string(raw),
			)
			// An unreadable success body suggests a version mismatch worth
			// one more attempt; a second one will not get better.
			if unrecognized > 1 {
				s.logAttempt(event.CartID, domain.FinalizationAttempt{
					Number: attempt, StartedAt: started, Outcome: domain.OutcomeTerminalError, Err: lastErr,
				})
				return nil, lastErr
			}
			s.logAttempt(event.CartID, domain.FinalizationAttempt{
				Number: attempt, StartedAt: started, Outcome: domain.OutcomeRetryableError, Err: lastErr,
			})
			continue
		}

		s.logAttempt(event.CartID, domain.FinalizationAttempt{
			Number: attempt, StartedAt: started, Outcome: domain.OutcomeSuccess,
		})
		return order, nil
	}

	return nil, domain.NewRetriesExhaustedError(s.finCfg.MaxAttempts, lastErr)
}

// resolveCartID returns the cart id from the event or, failing that, from
// the reference stored before the gateway redirect.
func (s *Service) resolveCartID(ctx context.Context, event domain.PaymentReturnEvent) (string, error) {
	if event.CartID != "" {
		return event.CartID, nil
	}

	cartID, err := s.refs.Get(ctx, event.ReferenceKey())
	if errors.Is(err, application.ErrReferenceNotFound) {
		return "", domain.NewCartNotResolvableError(event.ReferenceKey())
	}
	if err != nil {
		return "", err
	}
	return cartID, nil
}

// fetchCart loads the projected cart snapshot. On failure it attempts a
// direct payment session fetch purely to enrich the error log; the fallback
// never changes pipeline flow.
func (s *Service) fetchCart(ctx context.Context, event domain.PaymentReturnEvent) (*domain.Cart, error) {
	cart, err := s.store.FetchCart(ctx, event.CartID)
	if err == nil {
		return cart, nil
	}

	if event.SessionID != "" {
		if session, sErr := s.store.FetchPaymentSession(ctx, event.SessionID); sErr == nil {
			s.logger.Error("cart lookup failed but payment session exists",
				"cart_id", event.CartID,
				"session_id", session.ID,
				"session_status", session.Status,
				"provider_id", session.ProviderID,
				"error", err,
			)
		}
	}

	return nil, domain.NewCartLookupError(event.CartID, err)
}

func (s *Service) settle(ctx context.Context, stages int) error {
	for i := 0; i < stages; i++ {
		if err := s.sched.Sleep(ctx, s.finCfg.SettleDelay); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) logAttempt(cartID string, a domain.FinalizationAttempt) {
	if a.Outcome == domain.OutcomeSuccess {
		s.logger.Info("order placement succeeded",
			"cart_id", cartID,
			"attempt", a.Number,
		)
		return
	}
	s.logger.Warn("order placement attempt failed",
		"cart_id", cartID,
		"attempt", a.Number,
		"outcome", a.Outcome,
		"error", a.Err,
	)
}

func (s *Service) acquire(cartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[cartID]; busy {
		return false
	}
	s.inflight[cartID] = struct{}{}
	return true
}

func (s *Service) release(cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, cartID)
}

// pickSession prefers the session named by the return event and falls back
// to the first one on the collection.
func pickSession(sessions []domain.PaymentSession, sessionID string) domain.PaymentSession {
	for _, session := range sessions {
		if session.ID == sessionID {
			return session
		}
	}
	if len(sessions) > 0 {
		return sessions[0]
	}
	return domain.PaymentSession{}
}
