package domain

// Provider identifies the external payment gateway a shopper returned from.
type Provider string

const (
	ProviderPayU   Provider = "payu"
	ProviderStripe Provider = "stripe"
)

// PaymentReturnEvent is the canonical form of a gateway redirect. It is built
// once by the provider return adapter and consumed read-only by the rest of
// the pipeline.
type PaymentReturnEvent struct {
	Provider        Provider
	SessionID       string
	CartID          string
	ExternalOrderID string
	RawStatus       string
}

// ReferenceKey returns the key under which the cart reference was stored
// before the shopper was redirected to the gateway. The session id is the
// only identifier guaranteed to survive the round trip; PayU redirects may
// carry ext_order_id instead.
func (e PaymentReturnEvent) ReferenceKey() string {
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.ExternalOrderID
}

// HasIdentity reports whether the event carries at least one gateway-side
// identifier. Events without identity are rejected before any side effect.
func (e PaymentReturnEvent) HasIdentity() bool {
	return e.SessionID != "" || e.ExternalOrderID != ""
}
