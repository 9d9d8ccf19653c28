package finalizer

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
	"github.com/mkalinowski/storefront-finalizer/internal/config"
	"github.com/mkalinowski/storefront-finalizer/internal/domain"
	"github.com/mkalinowski/storefront-finalizer/internal/infrastructure/cartref"
	"github.com/mkalinowski/storefront-finalizer/internal/infrastructure/store"
)

func testService(storeClient *MockStoreClient, refs application.CartReferenceStore) (*Service, *FakeScheduler) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sched := &FakeScheduler{}

	svc := NewService(storeClient, refs, sched,
		config.FinalizeConfig{
			MaxAttempts:  4,
			RetryStep:    2 * time.Second,
			SettleDelay:  1 * time.Second,
			DisplayDelay: 5 * time.Second,
		},
		config.PollerConfig{
			Interval:  3 * time.Second,
			MaxChecks: 10,
		},
		logger,
	)
	return svc, sched
}

func cartWithCollection(cartID, sessionID, providerID string) *domain.Cart {
	return &domain.Cart{
		ID: cartID,
		PaymentCollection: &domain.PaymentCollection{
			ID:     "paycol_1",
			Status: "pending",
			PaymentSessions: []domain.PaymentSession{
				{ID: sessionID, ProviderID: providerID, Status: "pending"},
			},
		},
	}
}

func payuEvent(sessionID, cartID string) domain.PaymentReturnEvent {
	return domain.PaymentReturnEvent{
		Provider:  domain.ProviderPayU,
		SessionID: sessionID,
		CartID:    cartID,
	}
}

func stripeEvent(cartID string) domain.PaymentReturnEvent {
	return domain.PaymentReturnEvent{
		Provider:        domain.ProviderStripe,
		SessionID:       "pi_1",
		CartID:          cartID,
		ExternalOrderID: "pi_1",
		RawStatus:       "succeeded",
	}
}

func internalServerError() *store.StoreError {
	return &store.StoreError{Code: "unknown", Message: "Internal Server Error", StatusCode: 500}
}

func TestRun_PayUBLIKHappyPath(t *testing.T) {
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "s1", "pp_payu-blik"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			return json.RawMessage(`{"id":"o1","type":"order"}`), nil
		},
	}
	refs := cartref.NewMemoryStore()
	require.NoError(t, refs.Set(context.Background(), "s1", "c1"))
	svc, _ := testService(mockStore, refs)

	result, err := svc.Run(context.Background(), payuEvent("s1", "c1"))

	require.NoError(t, err)
	assert.Equal(t, domain.OrderResult{Kind: domain.KindOrder, ID: "o1"}, result.Order)
	assert.Equal(t, domain.MethodBLIK, result.Method)
	assert.Equal(t, "c1", result.CartID)
	assert.False(t, result.Assumed)
	assert.Len(t, mockStore.CompleteCalls, 1)

	// Stored cart reference is cleared on success.
	_, err = refs.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, application.ErrReferenceNotFound)
}

func TestRun_BoundedRetries(t *testing.T) {
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			return nil, internalServerError()
		},
	}
	refs := cartref.NewMemoryStore()
	require.NoError(t, refs.Set(context.Background(), "pi_1", "c1"))
	svc, sched := testService(mockStore, refs)

	_, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeRetriesExhausted))
	assert.Len(t, mockStore.CompleteCalls, 4, "must attempt exactly 4 times")

	// Sleeps: settle after initial auth, two staged settles, then linear
	// backoff 4s/6s/8s with a settle after each even-attempt reauth.
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		1 * time.Second,
		1 * time.Second,
		4 * time.Second,
		1 * time.Second,
		6 * time.Second,
		8 * time.Second,
		1 * time.Second,
	}, sched.Sleeps)

	// Stored cart reference survives terminal failure.
	cartID, refErr := refs.Get(context.Background(), "pi_1")
	require.NoError(t, refErr)
	assert.Equal(t, "c1", cartID)
}

func TestRun_FastFailOnTerminalError(t *testing.T) {
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			return nil, &store.StoreError{Code: "invalid_cart", Message: "Cart validation failed", StatusCode: 400}
		},
	}
	refs := cartref.NewMemoryStore()
	require.NoError(t, refs.Set(context.Background(), "pi_1", "c1"))
	svc, _ := testService(mockStore, refs)

	_, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.Error(t, err)
	assert.Len(t, mockStore.CompleteCalls, 1, "terminal errors must not consume further attempts")

	_, refErr := refs.Get(context.Background(), "pi_1")
	assert.NoError(t, refErr)
}

func TestRun_ReauthorizationCadence(t *testing.T) {
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			return nil, internalServerError()
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	_, err := svc.Run(context.Background(), stripeEvent("c1"))
	require.Error(t, err)

	require.Len(t, mockStore.AuthorizeCalls, 3)

	initial := mockStore.AuthorizeCalls[0]
	assert.Equal(t, 1, initial.Attempt)
	assert.False(t, initial.Reauthorization)
	assert.Equal(t, "authorized", initial.ForceStatus)
	assert.True(t, initial.FullyAuthorized)
	assert.False(t, initial.RequiresMore)
	assert.Empty(t, initial.FlowState)

	// Re-authorization on attempts 2 and 4 only, never 1 or 3.
	second := mockStore.AuthorizeCalls[1]
	assert.Equal(t, 2, second.Attempt)
	assert.True(t, second.Reauthorization)
	assert.Equal(t, "completed", second.FlowState)

	fourth := mockStore.AuthorizeCalls[2]
	assert.Equal(t, 4, fourth.Attempt)
	assert.True(t, fourth.Reauthorization)

	// Timestamps are refreshed per call.
	assert.False(t, second.ReconciledAt.Before(initial.ReconciledAt))
}

func TestRun_StripeRaceThenRecovery(t *testing.T) {
	calls := 0
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			calls++
			if calls == 1 {
				return nil, internalServerError()
			}
			return json.RawMessage(`{"order":{"id":"o2"}}`), nil
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	result, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.NoError(t, err)
	assert.Equal(t, domain.OrderResult{Kind: domain.KindOrder, ID: "o2"}, result.Order)
	assert.Len(t, mockStore.CompleteCalls, 2)
	// Initial auth plus the attempt-2 reauthorization.
	assert.Len(t, mockStore.AuthorizeCalls, 2)
}

func TestRun_SameIdempotencyKeyAcrossAttempts(t *testing.T) {
	calls := 0
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			calls++
			if calls < 3 {
				return nil, internalServerError()
			}
			return json.RawMessage(`{"id":"o1"}`), nil
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	_, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.NoError(t, err)
	require.Len(t, mockStore.CompleteCalls, 3)
	assert.Equal(t, mockStore.CompleteCalls[0], mockStore.CompleteCalls[1])
	assert.Equal(t, mockStore.CompleteCalls[1], mockStore.CompleteCalls[2])
}

func TestRun_AlreadyCompletedCartSurfacesExistingOrder(t *testing.T) {
	// The backend's idempotency resolves a completed cart to its existing
	// order; a second finalization must surface the same id, not an error.
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			return json.RawMessage(`{"order":{"id":"o_existing"}}`), nil
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	first, err := svc.Run(context.Background(), stripeEvent("c1"))
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), stripeEvent("c1"))
	require.NoError(t, err)

	assert.Equal(t, first.Order, second.Order)
	assert.Equal(t, "o_existing", second.Order.ID)
}

func TestRun_UnrecognizedResultIsRetryable(t *testing.T) {
	calls := 0
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			calls++
			if calls == 1 {
				return json.RawMessage(`{"cart":{"id":"c1"}}`), nil
			}
			return json.RawMessage(`{"id":"o1","type":"order"}`), nil
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	result, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.NoError(t, err)
	assert.Equal(t, "o1", result.Order.ID)
	assert.Len(t, mockStore.CompleteCalls, 2)
}

func TestRun_PersistentlyUnrecognizedResultGoesTerminal(t *testing.T) {
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	}
	refs := cartref.NewMemoryStore()
	require.NoError(t, refs.Set(context.Background(), "pi_1", "c1"))
	svc, _ := testService(mockStore, refs)

	_, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnrecognizedResult))
	assert.Len(t, mockStore.CompleteCalls, 2, "an unreadable success shape is retried once, then terminal")

	// Terminal failure leaves the reference intact.
	_, refErr := refs.Get(context.Background(), "pi_1")
	assert.NoError(t, refErr)
}

func TestRun_NoPaymentCollection(t *testing.T) {
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return &domain.Cart{ID: cartID}, nil
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	_, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeNoPaymentCollection))
	assert.Empty(t, mockStore.CompleteCalls)
}

func TestRun_CartLookupFailure(t *testing.T) {
	sessionFetched := false
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return nil, &store.StoreError{Code: "not_found", Message: "Cart not found", StatusCode: 404}
		},
		FetchPaymentSessionFn: func(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
			sessionFetched = true
			return &domain.PaymentSession{ID: sessionID, Status: "authorized"}, nil
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	_, err := svc.Run(context.Background(), stripeEvent("c1"))

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeCartLookup))
	assert.True(t, sessionFetched, "diagnostic session fetch should run")
	assert.Empty(t, mockStore.CompleteCalls)
}

func TestRun_CartResolvedFromStoredReference(t *testing.T) {
	var fetchedCartID string
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			fetchedCartID = cartID
			return cartWithCollection(cartID, "s1", "payu-blik"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			return json.RawMessage(`{"id":"o1"}`), nil
		},
	}
	refs := cartref.NewMemoryStore()
	require.NoError(t, refs.Set(context.Background(), "s1", "c9"))
	svc, _ := testService(mockStore, refs)

	result, err := svc.Run(context.Background(), payuEvent("s1", ""))

	require.NoError(t, err)
	assert.Equal(t, "c9", fetchedCartID)
	assert.Equal(t, "c9", result.CartID)
}

func TestRun_CartNotResolvable(t *testing.T) {
	mockStore := &MockStoreClient{}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	_, err := svc.Run(context.Background(), payuEvent("s1", ""))

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeCartNotResolvable))
	assert.Empty(t, mockStore.CompleteCalls)
	assert.Empty(t, mockStore.AuthorizeCalls)
}

func TestRun_MissingIdentityRejectedBeforeSideEffects(t *testing.T) {
	mockStore := &MockStoreClient{}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	_, err := svc.Run(context.Background(), domain.PaymentReturnEvent{
		Provider: domain.ProviderPayU,
		CartID:   "c1",
	})

	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeParse, svcErr.Code)
	assert.Empty(t, mockStore.CompleteCalls)
	assert.Empty(t, mockStore.AuthorizeCalls)
}

func TestRun_ConcurrentRunForSameCartRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	mockStore := &MockStoreClient{
		FetchCartFn: func(ctx context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			close(entered)
			<-release
			return json.RawMessage(`{"id":"o1"}`), nil
		},
	}
	svc, _ := testService(mockStore, cartref.NewMemoryStore())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), stripeEvent("c1"))
		done <- err
	}()

	<-entered
	_, err := svc.Run(context.Background(), stripeEvent("c1"))
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeAlreadyRunning))

	close(release)
	require.NoError(t, <-done)
}

func TestRun_CancelledContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mockStore := &MockStoreClient{
		FetchCartFn: func(c context.Context, cartID string) (*domain.Cart, error) {
			return cartWithCollection(cartID, "pi_1", "stripe"), nil
		},
		CompleteCartFn: func(c context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
			cancel()
			return nil, internalServerError()
		},
	}
	refs := cartref.NewMemoryStore()
	require.NoError(t, refs.Set(context.Background(), "pi_1", "c1"))
	svc, sched := testService(mockStore, refs)
	sched.SleepFn = func(c context.Context, d time.Duration) error {
		return c.Err()
	}

	_, err := svc.Run(ctx, stripeEvent("c1"))

	require.Error(t, err)
	assert.Len(t, mockStore.CompleteCalls, 1)

	// Cancellation is a failure path: the reference stays put.
	_, refErr := refs.Get(context.Background(), "pi_1")
	assert.NoError(t, refErr)
}
