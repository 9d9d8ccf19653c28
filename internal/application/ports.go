package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// StoreClient is the port for the commerce backend's public store API.
type StoreClient interface {
	// FetchCart resolves a cart with a field projection covering its payment
	// collection, payment sessions, items, region, and completion markers.
	FetchCart(ctx context.Context, cartID string) (*domain.Cart, error)

	// FetchPaymentSession resolves a single payment session. Used as a
	// diagnostic fallback when the cart lookup fails.
	FetchPaymentSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error)

	// AuthorizePaymentCollection issues or re-issues the authorization call
	// for a payment collection.
	AuthorizePaymentCollection(ctx context.Context, collectionID string, payload domain.AuthorizationPayload) (json.RawMessage, error)

	// CompleteCart invokes the backend's idempotent order placement.
	CompleteCart(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error)

	// FetchPaymentStatus returns the current status of a payment collection.
	FetchPaymentStatus(ctx context.Context, collectionID string) (string, error)
}

// CartReferenceStore is the port for the single stored cart reference
// written before the gateway redirect. Keys are gateway-side identifiers
// (session id or external order id).
type CartReferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, cartID string) error
	Delete(ctx context.Context, key string) error
}

// ErrReferenceNotFound is returned by CartReferenceStore.Get when no cart id
// is stored under the key. Delete on a missing key is not an error.
var ErrReferenceNotFound = errors.New("cart reference not found")

// Scheduler abstracts cancellable waiting so the retry loop is a plain
// sequential function testable without real timers.
type Scheduler interface {
	Sleep(ctx context.Context, d time.Duration) error
}
