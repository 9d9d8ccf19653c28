package finalizer

import (
	"log/slog"
	"strings"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// methodByProvider maps payment session provider ids to canonical method
// tags. Provider ids arrive both bare and with the backend's pp_ prefix.
var methodByProvider = map[string]domain.PaymentMethod{
	"payu-blik":      domain.MethodBLIK,
	"payu-card":      domain.MethodCard,
	"payu-transfer":  domain.MethodTransfer,
	"payu-googlepay": domain.MethodGooglePay,
	"stripe":         domain.MethodCard,
	"stripe-blik":    domain.MethodBLIK,
}

// ClassifyPaymentMethod maps a provider id to its canonical payment method.
// It never fails: an unknown or missing provider id falls back to the
// default tag, because an imprecise method only affects display, while a
// blocked finalization loses an order.
func ClassifyPaymentMethod(providerID string, logger *slog.Logger) domain.PaymentMethod {
	id := strings.TrimPrefix(providerID, "pp_")

	if method, ok := methodByProvider[id]; ok {
		return method
	}

	logger.Warn("unknown payment provider id, using default method",
		"provider_id", providerID,
		"default", domain.DefaultPaymentMethod,
	)
	return domain.DefaultPaymentMethod
}
