package domain

// PaymentMethod is the canonical tag derived from a payment session's
// provider id. It only affects downstream display and the authorization
// payload's method hint, never whether finalization can proceed.
type PaymentMethod string

const (
	MethodBLIK      PaymentMethod = "BLIK"
	MethodCard      PaymentMethod = "CARD"
	MethodTransfer  PaymentMethod = "TRANSFER"
	MethodGooglePay PaymentMethod = "GOOGLEPAY"
)

// DefaultPaymentMethod is used when a provider id is missing or unknown.
// An imprecise tag is harmless; blocking finalization over one is not.
const DefaultPaymentMethod = MethodBLIK
