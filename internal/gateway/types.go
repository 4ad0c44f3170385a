package gateway

// PaymentState is the gateway's authoritative payment state
type PaymentState string

const (
	PaymentInitiated         PaymentState = "INITIATED"
	PaymentReserved          PaymentState = "RESERVED"
	PaymentCaptured          PaymentState = "CAPTURED"
	PaymentCancelled         PaymentState = "CANCELLED"
	PaymentRefunded          PaymentState = "REFUNDED"
	PaymentPartiallyRefunded PaymentState = "PARTIALLY_REFUNDED"
)

// SessionState is the checkout session state reported in callbacks and
// session status lookups
type SessionState string

const (
	SessionCreated           SessionState = "SessionCreated"
	SessionPaymentInitiated  SessionState = "PaymentInitiated"
	SessionPaymentSuccessful SessionState = "PaymentSuccessful"
	SessionPaymentTerminated SessionState = "PaymentTerminated"
	SessionExpired           SessionState = "SessionExpired"
)

// IsSuccess reports whether the session state signals a completed payment
func (s SessionState) IsSuccess() bool {
	return s == SessionPaymentSuccessful
}

// IsTerminalFailure reports whether the session state signals that the
// payment will never complete
func (s SessionState) IsTerminalFailure() bool {
	return s == SessionPaymentTerminated || s == SessionExpired
}

// CreateSessionRequest describes a new checkout session scoped to an order
// reference and its authoritative total
type CreateSessionRequest struct {
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CallbackURL   string `json:"callbackUrl"`
	CallbackToken string `json:"callbackAuthorizationToken"`
	ReturnURL     string `json:"returnUrl,omitempty"`
}

// Session is the customer-facing result of session creation
type Session struct {
	Token       string `json:"token"`
	FrontendURL string `json:"checkoutFrontendUrl"`
}

// AddressDetails is an address as reported by the gateway
type AddressDetails struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Street     string `json:"streetAddress"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// CustomerDetails is the customer identity collected by the gateway during
// checkout
type CustomerDetails struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// PaymentDetails is the authoritative payment record for a reference.
// Captured/refunded amounts are only meaningful in the states that imply
// them; callers must branch on State first.
type PaymentDetails struct {
	State          PaymentState `json:"state"`
	Amount         int64        `json:"amount"`
	Currency       string       `json:"currency"`
	CapturedAmount int64        `json:"capturedAmount,omitempty"`
	RefundedAmount int64        `json:"refundedAmount,omitempty"`
}

// SessionStatus is the full session detail fetched after a callback. Fields
// below SessionState are present only in the states that define them, so
// they are pointers rather than one flat record.
type SessionStatus struct {
	Reference        string           `json:"reference"`
	SessionState     SessionState     `json:"sessionState"`
	Amount           int64            `json:"amount"`
	Currency         string           `json:"currency"`
	PaymentDetails   *PaymentDetails  `json:"paymentDetails,omitempty"`
	CustomerDetails  *CustomerDetails `json:"customerDetails,omitempty"`
	ShippingAddress  *AddressDetails  `json:"shippingDetails,omitempty"`
	BillingAddress   *AddressDetails  `json:"billingDetails,omitempty"`
}
