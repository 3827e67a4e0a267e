package payment

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// MockGateway is an in-memory provider. It issues orders, records payments
// made against them and signs checkout callbacks with the shared secret.
type MockGateway struct {
	mu            sync.RWMutex
	secret        string
	orderFailRate int
	orders        map[string]ProviderOrder
	payments      map[string]ProviderPayment
}

// NewMockGateway returns a gateway that fails order creation for roughly
// orderFailRate percent of calls.
func NewMockGateway(secret string, orderFailRate int) *MockGateway {
	return &MockGateway{
		secret:        secret,
		orderFailRate: orderFailRate,
		orders:        make(map[string]ProviderOrder),
		payments:      make(map[string]ProviderPayment),
	}
}

func mockID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func (g *MockGateway) CreateOrder(ctx context.Context, req OrderRequest) (*ProviderOrder, error) {
	if g.orderFailRate > 0 && rand.IntN(100) < g.orderFailRate {
		return nil, &ProviderError{StatusCode: http.StatusBadGateway, Code: "SERVER_ERROR", Description: "upstream unavailable"}
	}
	notes, _ := json.Marshal(req.Notes)
	order := ProviderOrder{
		ID:        mockID("order_"),
		Entity:    "order",
		Amount:    req.Amount,
		AmountDue: req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     notes,
		CreatedAt: time.Now().Unix(),
	}

	g.mu.Lock()
	g.orders[order.ID] = order
	g.mu.Unlock()
	return &order, nil
}

func (g *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*ProviderPayment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &ProviderError{StatusCode: http.StatusNotFound, Code: "BAD_REQUEST_ERROR", Description: "The id provided does not exist"}
	}
	return &p, nil
}

// Pay captures a payment for the order and returns the triple the checkout
// widget hands back to the browser.
func (g *MockGateway) Pay(orderID string) (paymentID, signature string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return "", "", errors.New("unknown order " + orderID)
	}
	paymentID = mockID("pay_")
	g.payments[paymentID] = ProviderPayment{
		ID:       paymentID,
		Entity:   "payment",
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   PaymentCaptured,
		OrderID:  orderID,
		Method:   "upi",
		Captured: true,
	}
	order.AmountPaid, order.AmountDue, order.Status = order.Amount, 0, "paid"
	g.orders[orderID] = order
	return paymentID, Sign(g.secret, orderID, paymentID), nil
}

// Decline records a failed payment attempt and returns the provider's reason.
func (g *MockGateway) Decline(orderID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return "", errors.New("unknown order " + orderID)
	}
	paymentID := mockID("pay_")
	reason := "Payment declined by issuing bank"
	g.payments[paymentID] = ProviderPayment{
		ID:               paymentID,
		Entity:           "payment",
		Amount:           order.Amount,
		Currency:         order.Currency,
		Status:           PaymentFailed,
		OrderID:          orderID,
		ErrorDescription: reason,
	}
	return reason, nil
}

func (g *MockGateway) Order(orderID string) (ProviderOrder, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	o, ok := g.orders[orderID]
	return o, ok
}
