package rest

import "github.com/mkalinowski/storefront-finalizer/internal/domain"

// failureMessages are the user-facing texts shown before the delayed
// redirect back to checkout. Keyed by domain error code, then locale.
var failureMessages = map[string]map[string]string{
	domain.ErrCodeMissingSession: {
		"pl": "Brak danych płatności w adresie powrotu. Wróć do koszyka i spróbuj ponownie.",
		"en": "The payment return is missing its identifiers. Please go back to your cart and try again.",
	},
	domain.ErrCodePaymentFailed: {
		"pl": "Płatność nie powiodła się. Wróć do kasy i spróbuj ponownie.",
		"en": "The payment was not successful. Please return to checkout and try again.",
	},
	domain.ErrCodeUnknownStatus: {
		"pl": "Nie udało się potwierdzić statusu płatności. Wróć do kasy i spróbuj ponownie.",
		"en": "We could not confirm the payment status. Please return to checkout and try again.",
	},
	domain.ErrCodeRetriesExhausted: {
		"pl": "Nie udało się sfinalizować zamówienia. Twój koszyk został zachowany, odśwież stronę aby spróbować ponownie.",
		"en": "We could not finalize your order. Your cart has been kept, reload the page to try again.",
	},
}

const defaultLocale = "pl"

var genericFailureMessage = map[string]string{
	"pl": "Wystąpił błąd podczas finalizacji zamówienia. Wróć do kasy i spróbuj ponownie.",
	"en": "Something went wrong while finalizing your order. Please return to checkout and try again.",
}

func failureMessage(err error, locale string) string {
	if locale != "pl" && locale != "en" {
		locale = defaultLocale
	}
	for code, byLocale := range failureMessages {
		if domain.IsErrorCode(err, code) {
			return byLocale[locale]
		}
	}
	return genericFailureMessage[locale]
}
