package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Gateway is the provider's server-side REST API.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*ProviderOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*ProviderPayment, error)
}

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type ProviderOrder struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	AmountDue  int64           `json:"amount_due"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	Status     string          `json:"status"`
	Notes      json.RawMessage `json:"notes,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// NotesMap decodes notes; the provider sends [] instead of {} when empty.
func (o ProviderOrder) NotesMap() (map[string]string, error) {
	notes := map[string]string{}
	raw := bytes.TrimSpace(o.Notes)
	if len(raw) == 0 || bytes.Equal(raw, []byte("[]")) || bytes.Equal(raw, []byte("null")) {
		return notes, nil
	}
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil, errors.Wrap(err, "decode order notes")
	}
	return notes, nil
}

const (
	PaymentCreated    = "created"
	PaymentAuthorized = "authorized"
	PaymentCaptured   = "captured"
	PaymentRefunded   = "refunded"
	PaymentFailed     = "failed"
)

type ProviderPayment struct {
	ID               string `json:"id"`
	Entity           string `json:"entity"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	OrderID          string `json:"order_id"`
	Method           string `json:"method"`
	Captured         bool   `json:"captured"`
	ErrorDescription string `json:"error_description"`
}

// Settled is true for money that reached (or is held for) the merchant.
func (p ProviderPayment) Settled() bool {
	return p.Status == PaymentCaptured || p.Status == PaymentAuthorized
}

// ProviderError is a non-2xx answer from the provider API.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider responded %d: %s %s", e.StatusCode, e.Code, e.Description)
}

type providerErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type razorpayGateway struct {
	client *resty.Client
	logger *zap.Logger
}

func NewRazorpayGateway(baseURL, keyID, keySecret string, logger *zap.Logger) Gateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	return &razorpayGateway{client: client, logger: logger}
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*ProviderOrder, error) {
	var order ProviderOrder
	var apiErr providerErrorBody
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&order).
		SetError(&apiErr).
		Post("/v1/orders")
	if err != nil {
		return nil, errors.Wrap(err, "post order")
	}
	if resp.IsError() {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Code: apiErr.Error.Code, Description: apiErr.Error.Description}
	}
	if order.ID == "" {
		return nil, errors.New("provider returned an order without id")
	}
	g.logger.Debug("provider order created", zap.String("order_id", order.ID), zap.Int64("amount", order.Amount))
	return &order, nil
}

func (g *razorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*ProviderPayment, error) {
	var p ProviderPayment
	var apiErr providerErrorBody
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		SetResult(&p).
		SetError(&apiErr).
		Get("/v1/payments/{id}")
	if err != nil {
		return nil, errors.Wrap(err, "get payment")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Code: apiErr.Error.Code, Description: apiErr.Error.Description}
	}
	return &p, nil
}
