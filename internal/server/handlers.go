package server

import (
	"coin-checkout/internal/domain"
	"coin-checkout/internal/service"
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type handler struct {
	svc         service.OrderService
	keyID       string
	storeHealth func(ctx context.Context) map[string]string
	logger      *zap.Logger
}

type errorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Kind    domain.Kind `json:"kind,omitempty"`
}

type createOrderRequest struct {
	Amount   *decimal.Decimal  `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type createOrderResponse struct {
	Success     bool    `json:"success"`
	OrderID     string  `json:"orderId"`
	Amount      float64 `json:"amount"`
	AmountMinor int64   `json:"amountMinor"`
	Currency    string  `json:"currency"`
	Receipt     string  `json:"receipt"`
	KeyID       string  `json:"keyId,omitempty"`
}

// verifyPaymentRequest accepts both our field names and the ones the
// checkout widget hands to its success handler.
type verifyPaymentRequest struct {
	PaymentID         string `json:"paymentId"`
	OrderID           string `json:"orderId"`
	Signature         string `json:"signature"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (r verifyPaymentRequest) input() service.VerifyPaymentInput {
	in := service.VerifyPaymentInput{PaymentID: r.PaymentID, OrderID: r.OrderID, Signature: r.Signature}
	if in.PaymentID == "" {
		in.PaymentID = r.RazorpayPaymentID
	}
	if in.OrderID == "" {
		in.OrderID = r.RazorpayOrderID
	}
	if in.Signature == "" {
		in.Signature = r.RazorpaySignature
	}
	return in
}

type verifyPaymentResponse struct {
	Success   bool        `json:"success"`
	Verified  bool        `json:"verified"`
	PaymentID string      `json:"paymentId,omitempty"`
	OrderID   string      `json:"orderId,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      domain.Kind `json:"kind,omitempty"`
}

func (h *handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Wrap(domain.KindInvalidRequest, "Invalid request body", err))
		return
	}
	// a missing amount is rejected by the service, after its configuration check
	amount := decimal.Zero
	if req.Amount != nil {
		amount = *req.Amount
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		Amount:   amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, createOrderResponse{
		Success:     true,
		OrderID:     order.OrderID,
		Amount:      order.Amount.InexactFloat64(),
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		Receipt:     order.Receipt,
		KeyID:       h.keyID,
	})
}

func (h *handler) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Wrap(domain.KindInvalidRequest, "Missing payment verification parameters", err))
		return
	}

	out, err := h.svc.VerifyPayment(c.Request.Context(), req.input())
	if err != nil {
		kind := domain.KindOf(err)
		if kind.HTTPStatus() >= http.StatusInternalServerError {
			reportInternal(err)
		}
		resp := verifyPaymentResponse{Error: publicMessage(err), Kind: kind}
		if out != nil {
			resp.PaymentID, resp.OrderID = out.PaymentID, out.OrderID
		}
		c.AbortWithStatusJSON(kind.HTTPStatus(), resp)
		return
	}

	c.JSON(http.StatusOK, verifyPaymentResponse{
		Success:   true,
		Verified:  out.Verified,
		PaymentID: out.PaymentID,
		OrderID:   out.OrderID,
	})
}

func (h *handler) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.storeHealth != nil {
		body["store"] = h.storeHealth(c.Request.Context())
	} else {
		body["store"] = gin.H{"status": "memory"}
	}
	c.JSON(http.StatusOK, body)
}

func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind.HTTPStatus() >= http.StatusInternalServerError {
		reportInternal(err)
	}
	c.AbortWithStatusJSON(kind.HTTPStatus(), errorResponse{Error: publicMessage(err), Kind: kind})
}

// publicMessage never renders wrapped causes, which may carry provider detail.
func publicMessage(err error) string {
	if domain.KindOf(err) == domain.KindInternal {
		return "Internal server error"
	}
	return domain.MessageOf(err)
}

func reportInternal(err error) {
	sentry.CaptureException(err)
}
