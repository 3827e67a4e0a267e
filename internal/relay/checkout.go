package relay

import (
	"coin-checkout/internal/domain"
	"context"
	"sync"
)

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// CheckoutOptions configure the hosted widget. Amount and Currency are
// always copied from the order the backend created.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	OrderID     string            `json:"order_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// CheckoutHandlers receive the widget's callbacks. Any of them may fire
// more than once or after another one; only the first counts.
type CheckoutHandlers struct {
	OnSuccess func(paymentID, orderID, signature string)
	OnDismiss func()
	OnFailed  func(reason string)
}

// Checkout opens the provider's widget. Open returns once the widget is
// shown; the outcome arrives through the handlers.
type Checkout interface {
	Open(ctx context.Context, opts CheckoutOptions, h CheckoutHandlers) error
}

// attempt resolves a checkout exactly once.
type attempt struct {
	once sync.Once
	done chan domain.PaymentAttemptResult
}

func newAttempt() *attempt {
	return &attempt{done: make(chan domain.PaymentAttemptResult, 1)}
}

// resolve reports whether r was the result that settled the attempt.
func (a *attempt) resolve(r domain.PaymentAttemptResult) bool {
	won := false
	a.once.Do(func() {
		a.done <- r
		won = true
	})
	return won
}

func (a *attempt) handlers(onLate func(domain.PaymentAttemptResult)) CheckoutHandlers {
	settle := func(r domain.PaymentAttemptResult) {
		if !a.resolve(r) && onLate != nil {
			onLate(r)
		}
	}
	return CheckoutHandlers{
		OnSuccess: func(paymentID, orderID, signature string) {
			settle(domain.AttemptSuccess(paymentID, orderID, signature))
		},
		OnDismiss: func() { settle(domain.AttemptCancel()) },
		OnFailed:  func(reason string) { settle(domain.AttemptFailure(reason)) },
	}
}

// wait blocks until the attempt settles. A done ctx settles it as cancelled.
func (a *attempt) wait(ctx context.Context) domain.PaymentAttemptResult {
	select {
	case r := <-a.done:
		return r
	case <-ctx.Done():
		a.resolve(domain.AttemptCancel())
		return <-a.done
	}
}
