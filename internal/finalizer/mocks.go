package finalizer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// MockStoreClient is a function-field mock of the store API port. Unset
// fields fall back to benign defaults so tests only stub what they assert.
type MockStoreClient struct {
	mu sync.Mutex

	FetchCartFn                  func(ctx context.Context, cartID string) (*domain.Cart, error)
	FetchPaymentSessionFn        func(ctx context.Context, sessionID string) (*domain.PaymentSession, error)
	AuthorizePaymentCollectionFn func(ctx context.Context, collectionID string, payload domain.AuthorizationPayload) (json.RawMessage, error)
	CompleteCartFn               func(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error)
	FetchPaymentStatusFn         func(ctx context.Context, collectionID string) (string, error)

	AuthorizeCalls []domain.AuthorizationPayload
	CompleteCalls  []string
	StatusChecks   int
}

var _ application.StoreClient = (*MockStoreClient)(nil)

func (m *MockStoreClient) FetchCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if m.FetchCartFn != nil {
		return m.FetchCartFn(ctx, cartID)
	}
	return &domain.Cart{ID: cartID}, nil
}

func (m *MockStoreClient) FetchPaymentSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	if m.FetchPaymentSessionFn != nil {
		return m.FetchPaymentSessionFn(ctx, sessionID)
	}
	return &domain.PaymentSession{ID: sessionID}, nil
}

func (m *MockStoreClient) AuthorizePaymentCollection(ctx context.Context, collectionID string, payload domain.AuthorizationPayload) (json.RawMessage, error) {
	m.mu.Lock()
	m.AuthorizeCalls = append(m.AuthorizeCalls, payload)
	m.mu.Unlock()
	if m.AuthorizePaymentCollectionFn != nil {
		return m.AuthorizePaymentCollectionFn(ctx, collectionID, payload)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockStoreClient) CompleteCart(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, idempotencyKey)
	m.mu.Unlock()
	if m.CompleteCartFn != nil {
		return m.CompleteCartFn(ctx, cartID, idempotencyKey)
	}
	return json.RawMessage(`{"id":"order_1","type":"order"}`), nil
}

func (m *MockStoreClient) FetchPaymentStatus(ctx context.Context, collectionID string) (string, error) {
	m.mu.Lock()
	m.StatusChecks++
	m.mu.Unlock()
	if m.FetchPaymentStatusFn != nil {
		return m.FetchPaymentStatusFn(ctx, collectionID)
	}
	return "authorized", nil
}

// FakeScheduler records requested sleeps and returns immediately, so the
// retry loop can be stepped through without wall-clock waits.
type FakeScheduler struct {
	mu      sync.Mutex
	Sleeps  []time.Duration
	SleepFn func(ctx context.Context, d time.Duration) error
}

var _ application.Scheduler = (*FakeScheduler)(nil)

func (f *FakeScheduler) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.Sleeps = append(f.Sleeps, d)
	f.mu.Unlock()
	if f.SleepFn != nil {
		return f.SleepFn(ctx, d)
	}
	return nil
}
