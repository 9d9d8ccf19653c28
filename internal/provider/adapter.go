// Package provider parses raw gateway redirect parameters into canonical
// payment return events. Adapters are pure: a parse failure short-circuits
// the pipeline before any side effect.
package provider

import (
	"fmt"
	"net/url"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// Parse dispatches to the adapter for the given provider.
func Parse(p domain.Provider, params url.Values) (domain.PaymentReturnEvent, error) {
	switch p {
	case domain.ProviderPayU:
		return ParsePayU(params)
	case domain.ProviderStripe:
		return ParseStripe(params)
	default:
		return domain.PaymentReturnEvent{}, fmt.Errorf("unsupported payment provider %q", p)
	}
}
