package domain

type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "SUCCEEDED"
	AttemptCancelled AttemptStatus = "CANCELLED"
	AttemptFailed    AttemptStatus = "FAILED"
)

// PaymentAttemptResult is what the checkout widget reported. A succeeded
// attempt still has to be verified by the backend.
type PaymentAttemptResult struct {
	Status    AttemptStatus
	PaymentID string
	OrderID   string
	Signature string
	Reason    string
}

func AttemptSuccess(paymentID, orderID, signature string) PaymentAttemptResult {
	return PaymentAttemptResult{Status: AttemptSucceeded, PaymentID: paymentID, OrderID: orderID, Signature: signature}
}

func AttemptCancel() PaymentAttemptResult {
	return PaymentAttemptResult{Status: AttemptCancelled}
}

func AttemptFailure(reason string) PaymentAttemptResult {
	return PaymentAttemptResult{Status: AttemptFailed, Reason: reason}
}

type VerificationOutcome struct {
	Verified  bool
	PaymentID string
	OrderID   string
	Error     string
}

type Outcome string

const (
	OutcomeVerified  Outcome = "verified"
	OutcomeSimulated Outcome = "simulated"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

type PurchaseResult struct {
	Outcome   Outcome `json:"outcome"`
	PaymentID string  `json:"paymentId,omitempty"`
	OrderID   string  `json:"orderId,omitempty"`
	Kind      Kind    `json:"kind,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Success reports a provider-confirmed, backend-verified purchase.
// Simulated purchases are never successful.
func (r PurchaseResult) Success() bool {
	return r.Outcome == OutcomeVerified
}

func (r PurchaseResult) Simulated() bool {
	return r.Outcome == OutcomeSimulated
}

func PurchaseFailed(err error) PurchaseResult {
	return PurchaseResult{
		Outcome: OutcomeFailed,
		Kind:    KindOf(err),
		Error:   MessageOf(err),
	}
}
