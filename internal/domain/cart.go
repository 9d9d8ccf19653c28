package domain

import "time"

// Cart is the projected snapshot fetched from the store API: only the
// fields finalization needs.
type Cart struct {
	ID                string             `json:"id"`
	CompletedAt       *time.Time         `json:"completed_at"`
	Region            *Region            `json:"region"`
	Items             []LineItem         `json:"items"`
	PaymentCollection *PaymentCollection `json:"payment_collection"`
}

type Region struct {
	ID          string `json:"id"`
	CountryCode string `json:"country_code"`
}

type LineItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// PaymentCollection aggregates the payment sessions attached to a cart.
type PaymentCollection struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	PaymentSessions []PaymentSession `json:"payment_sessions"`
}

// PaymentSession is a single provider-specific payment attempt, identified
// by a provider id such as payu-blik.
type PaymentSession struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
}

// AuthorizationPayload is the enrichment envelope sent to the backend's
// authorize endpoint so it can accept a late-arriving confirmation.
// Re-authorization attempts re-send it with a fresh timestamp and a forced
// completed flow state.
type AuthorizationPayload struct {
	SessionID        string        `json:"session_id"`
	CartID           string        `json:"cart_id"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	ProviderOrderRef string        `json:"provider_order_ref,omitempty"`
	ForceStatus      string        `json:"force_status"`
	FullyAuthorized  bool          `json:"fully_authorized"`
	RequiresMore     bool          `json:"requires_more"`
	FlowState        string        `json:"flow_state,omitempty"`
	ReconciledAt     time.Time     `json:"reconciled_at"`
	Attempt          int           `json:"attempt"`
	Reauthorization  bool          `json:"reauthorization"`
}
