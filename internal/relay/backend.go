package relay

import (
	"coin-checkout/internal/auth"
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
)

const appTokenTTL = 5 * time.Minute

// Backend is the trusted verification service.
type Backend interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error)
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResponse, error)
}

type CreateOrderRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type CreatedOrder struct {
	Success     bool    `json:"success"`
	OrderID     string  `json:"orderId"`
	Amount      float64 `json:"amount"`
	AmountMinor int64   `json:"amountMinor"`
	Currency    string  `json:"currency"`
	Receipt     string  `json:"receipt"`
	KeyID       string  `json:"keyId"`
	Error       string  `json:"error"`
	Kind        string  `json:"kind"`
}

type VerifyPaymentRequest struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
}

type VerifyPaymentResponse struct {
	Success   bool   `json:"success"`
	Verified  bool   `json:"verified"`
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Error     string `json:"error"`
	Kind      string `json:"kind"`
}

// BackendError is a non-2xx answer that carried no usable body.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return "backend responded " + http.StatusText(e.StatusCode) + ": " + e.Message
}

type HTTPBackend struct {
	client     *resty.Client
	appID      string
	authSecret []byte
}

func NewHTTPBackend(baseURL, appID, authSecret string) *HTTPBackend {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	return &HTTPBackend{client: client, appID: appID, authSecret: []byte(authSecret)}
}

func (b *HTTPBackend) request(ctx context.Context) (*resty.Request, error) {
	r := b.client.R().SetContext(ctx)
	if len(b.authSecret) > 0 {
		token, err := auth.IssueAppToken(b.authSecret, b.appID, appTokenTTL)
		if err != nil {
			return nil, err
		}
		r.SetAuthToken(token)
	}
	return r, nil
}

func (b *HTTPBackend) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error) {
	r, err := b.request(ctx)
	if err != nil {
		return nil, err
	}
	var out CreatedOrder
	resp, err := r.SetBody(req).SetResult(&out).SetError(&out).Post("/create-order")
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	if resp.IsError() || !out.Success {
		return nil, &BackendError{StatusCode: resp.StatusCode(), Message: out.Error}
	}
	return &out, nil
}

// VerifyPayment returns the backend's verdict. A rejected payment is a
// response with Verified false, not an error.
func (b *HTTPBackend) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	r, err := b.request(ctx)
	if err != nil {
		return nil, err
	}
	var out VerifyPaymentResponse
	resp, err := r.SetBody(req).SetResult(&out).SetError(&out).Post("/verify-payment")
	if err != nil {
		return nil, errors.Wrap(err, "verify payment")
	}
	if resp.IsError() && out.Error == "" {
		return nil, &BackendError{StatusCode: resp.StatusCode()}
	}
	return &out, nil
}

// Health is a best-effort reachability probe.
func (b *HTTPBackend) Health(ctx context.Context) bool {
	resp, err := b.client.R().SetContext(ctx).Get("/health")
	return err == nil && resp.StatusCode() == http.StatusOK
}
