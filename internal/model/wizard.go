package model

// PaymentMethod is how the donor intends to pay.
type PaymentMethod string

// Supported payment methods.
const (
	MethodCard   PaymentMethod = "card"
	MethodPayPal PaymentMethod = "paypal"
)

// Card holds card details between the payment and review steps only.
type Card struct {
	Number  string
	Holder  string
	Expiry  string
	CVV     string
	Country string
}

// WizardPayload is the donation intent accumulated across wizard steps.
// Steps only ever add fields; Card is dropped once a charge succeeds.
type WizardPayload struct {
	Card   *Card
	Cause  string
	Name   string
	Email  string
	Method PaymentMethod
	Amount float64
}

// Receipt is what the success step shows after a completed payment.
type Receipt struct {
	Cause         string
	Email         string
	ReceiptURL    string
	TransactionID string
	Method        PaymentMethod
	Amount        float64
}
