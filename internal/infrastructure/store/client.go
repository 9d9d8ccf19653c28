package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/mkalinowski/storefront-finalizer/internal/config"
	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// cartFields is the explicit projection requested on every cart fetch.
// Keeping the payload small is a deliberate performance constraint: the
// finalizer only needs the payment collection, its sessions, the items,
// the region, and the completion marker.
const cartFields = "id,completed_at,*items,*region,*payment_collection,*payment_collection.payment_sessions"

// Client talks to the commerce backend's public store API, authenticated
// with a publishable key.
type Client struct {
	r *resty.Client
}

func NewClient(cfg config.StoreConfig) *Client {
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.ConnTimeout).
		SetHeader("x-publishable-api-key", cfg.PublishableKey).
		SetHeader("Content-Type", "application/json")

	return &Client{r: r}
}

type cartEnvelope struct {
	Cart *domain.Cart `json:"cart"`
}

type sessionEnvelope struct {
	PaymentSession *domain.PaymentSession `json:"payment_session"`
}

type collectionEnvelope struct {
	PaymentCollection *domain.PaymentCollection `json:"payment_collection"`
}

func (c *Client) FetchCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var env cartEnvelope
	resp, err := c.r.R().
		SetContext(ctx).
		SetQueryParam("fields", cartFields).
		SetResult(&env).
		Get(fmt.Sprintf("/store/carts/%s", cartID))
	if err != nil {
		return nil, fmt.Errorf("fetching cart %s: %w", cartID, err)
	}
	if resp.IsError() {
		return nil, toStoreError(resp)
	}
	if env.Cart == nil {
		return nil, &StoreError{Code: "not_found", Message: "cart missing from response", StatusCode: resp.StatusCode()}
	}
	return env.Cart, nil
}

func (c *Client) FetchPaymentSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	var env sessionEnvelope
	resp, err := c.r.R().
		SetContext(ctx).
		SetResult(&env).
		Get(fmt.Sprintf("/store/payment-sessions/%s", sessionID))
	if err != nil {
		return nil, fmt.Errorf("fetching payment session %s: %w", sessionID, err)
	}
	if resp.IsError() {
		return nil, toStoreError(resp)
	}
	if env.PaymentSession == nil {
		return nil, &StoreError{Code: "not_found", Message: "payment session missing from response", StatusCode: resp.StatusCode()}
	}
	return env.PaymentSession, nil
}

func (c *Client) AuthorizePaymentCollection(ctx context.Context, collectionID string, payload domain.AuthorizationPayload) (json.RawMessage, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetBody(payload).
		Post(fmt.Sprintf("/store/payment-collections/%s/authorize", collectionID))
	if err != nil {
		return nil, fmt.Errorf("authorizing payment collection %s: %w", collectionID, err)
	}
	if resp.IsError() {
		return nil, toStoreError(resp)
	}
	return json.RawMessage(resp.Body()), nil
}

func (c *Client) CompleteCart(ctx context.Context, cartID, idempotencyKey string) (json.RawMessage, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", idempotencyKey).
		SetBody(map[string]bool{"completed": true}).
		Post(fmt.Sprintf("/store/carts/%s/complete", cartID))
	if err != nil {
		return nil, fmt.Errorf("completing cart %s: %w", cartID, err)
	}
	if resp.IsError() {
		return nil, toStoreError(resp)
	}
	return json.RawMessage(resp.Body()), nil
}

func (c *Client) FetchPaymentStatus(ctx context.Context, collectionID string) (string, error) {
	var env collectionEnvelope
	resp, err := c.r.R().
		SetContext(ctx).
		SetResult(&env).
		Get(fmt.Sprintf("/store/payment-collections/%s", collectionID))
	if err != nil {
		return "", fmt.Errorf("fetching payment collection %s: %w", collectionID, err)
	}
	if resp.IsError() {
		return "", toStoreError(resp)
	}
	if env.PaymentCollection == nil {
		return "", &StoreError{Code: "not_found", Message: "payment collection missing from response", StatusCode: resp.StatusCode()}
	}
	return env.PaymentCollection.Status, nil
}

func toStoreError(resp *resty.Response) error {
	var errResp storeErrorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err != nil || errResp.Message == "" {
		return &StoreError{
			Code:       "unknown",
			Message:    string(resp.Body()),
			StatusCode: resp.StatusCode(),
		}
	}
	code := errResp.Code
	if code == "" {
		code = errResp.Type
	}
	return &StoreError{
		Code:       code,
		Message:    errResp.Message,
		StatusCode: resp.StatusCode(),
	}
}
