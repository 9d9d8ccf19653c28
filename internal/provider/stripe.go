package provider

import (
	"net/url"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// ParseStripe normalizes a Stripe redirect. redirect_status is the primary
// signal; some flows omit it, in which case the custom status query param
// set on the return URL fills in. A failed or unrecognized status is a
// terminal parse failure so the pipeline never touches the backend for a
// payment the gateway already rejected.
func ParseStripe(params url.Values) (domain.PaymentReturnEvent, error) {
	cartID := params.Get("cart_id")
	if cartID == "" {
		return domain.PaymentReturnEvent{}, domain.NewMissingSessionError(domain.ProviderStripe)
	}

	status := params.Get("redirect_status")
	if status == "" {
		status = params.Get("status")
	}

	event := domain.PaymentReturnEvent{
		Provider:        domain.ProviderStripe,
		SessionID:       params.Get("payment_intent"),
		CartID:          cartID,
		ExternalOrderID: params.Get("payment_intent"),
		RawStatus:       status,
	}

	switch status {
	case "succeeded", "success":
		return event, nil
	case "failed":
		return domain.PaymentReturnEvent{}, domain.NewPaymentFailedError(domain.ProviderStripe, status)
	default:
		return domain.PaymentReturnEvent{}, domain.NewUnknownStatusError(domain.ProviderStripe, status)
	}
}
