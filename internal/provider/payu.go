package provider

import (
	"net/url"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// ParsePayU normalizes a PayU redirect. PayU surfaces session_id and
// ext_order_id on the continue URL; at least one must be present. The
// orderId parameter, when present, is PayU's own order reference and is
// carried for the authorization payload.
//
// PayU redirects do not reliably carry a cart id; the pipeline resolves it
// from the stored cart reference when CartID is empty.
func ParsePayU(params url.Values) (domain.PaymentReturnEvent, error) {
	sessionID := params.Get("session_id")
	extOrderID := params.Get("ext_order_id")

	if sessionID == "" && extOrderID == "" {
		return domain.PaymentReturnEvent{}, domain.NewMissingSessionError(domain.ProviderPayU)
	}

	return domain.PaymentReturnEvent{
		Provider:        domain.ProviderPayU,
		SessionID:       sessionID,
		CartID:          params.Get("cart_id"),
		ExternalOrderID: firstNonEmpty(extOrderID, params.Get("orderId")),
		RawStatus:       params.Get("status"),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
