package relay

import (
	"coin-checkout/internal/domain"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Readiness is satisfied by *loader.Loader.
type Readiness interface {
	EnsureReady(ctx context.Context) bool
}

type Config struct {
	// PublicKey is the provider key id; the backend's keyId is used when empty.
	PublicKey    string
	MerchantName string
	Currency     string
	MaxAmount    decimal.Decimal
	// AllowSimulated turns an unloadable gateway into a simulated result
	// instead of a failure. Simulated results are never successful.
	AllowSimulated bool
}

type Buyer struct {
	Name    string
	Email   string
	Contact string
}

type PurchaseRequest struct {
	Amount      float64
	Description string
	Buyer       *Buyer
	Metadata    map[string]string
}

type Client struct {
	cfg      Config
	loader   Readiness
	backend  Backend
	checkout Checkout
	catalog  Catalog
	logger   *zap.Logger
}

func New(cfg Config, loader Readiness, backend Backend, checkout Checkout, catalog Catalog, logger *zap.Logger) *Client {
	return &Client{
		cfg:      cfg,
		loader:   loader,
		backend:  backend,
		checkout: checkout,
		catalog:  catalog,
		logger:   logger,
	}
}

// Purchase runs one checkout from order creation to backend verification.
// It never returns an error or panics; every outcome is a PurchaseResult.
func (c *Client) Purchase(ctx context.Context, req PurchaseRequest) (res domain.PurchaseResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("purchase panicked", zap.Any("panic", r))
			res = domain.PurchaseFailed(domain.E(domain.KindInternal, fmt.Sprintf("Unexpected error: %v", r)))
		}
	}()

	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return domain.PurchaseFailed(domain.E(domain.KindInvalidAmount, "Amount must be a finite number"))
	}
	amount := decimal.NewFromFloat(req.Amount)
	if err := domain.ValidateAmount(amount, c.cfg.MaxAmount); err != nil {
		return domain.PurchaseFailed(err)
	}

	if !c.loader.EnsureReady(ctx) {
		if ctx.Err() != nil {
			return cancelled("")
		}
		return c.gatewayUnavailable(req)
	}

	order, err := c.backend.CreateOrder(ctx, CreateOrderRequest{
		Amount:   amount.InexactFloat64(),
		Currency: c.cfg.Currency,
		Receipt:  newReceipt(),
		Notes:    req.Metadata,
	})
	if err != nil {
		c.logger.Warn("order creation failed", zap.Error(err))
		return domain.PurchaseFailed(domain.Wrap(domain.KindOrderCreationFailed, describe("Could not create order", err), err))
	}
	if order.OrderID == "" || order.AmountMinor <= 0 {
		return domain.PurchaseFailed(domain.E(domain.KindOrderCreationFailed, "Could not create order: backend returned an incomplete order"))
	}

	key := c.cfg.PublicKey
	if key == "" {
		key = order.KeyID
	}
	opts := CheckoutOptions{
		Key:         key,
		OrderID:     order.OrderID,
		Amount:      order.AmountMinor,
		Currency:    order.Currency,
		Name:        c.cfg.MerchantName,
		Description: req.Description,
		Notes:       req.Metadata,
	}
	if req.Buyer != nil {
		opts.Prefill = Prefill{Name: req.Buyer.Name, Email: req.Buyer.Email, Contact: req.Buyer.Contact}
	}

	a := newAttempt()
	if err := c.checkout.Open(ctx, opts, a.handlers(c.lateCallback(order.OrderID))); err != nil {
		c.logger.Warn("checkout did not open", zap.String("order_id", order.OrderID), zap.Error(err))
		res := domain.PurchaseFailed(domain.Wrap(domain.KindGatewayUnavailable, describe("Could not open checkout", err), err))
		res.OrderID = order.OrderID
		return res
	}

	attempt := a.wait(ctx)
	switch attempt.Status {
	case domain.AttemptCancelled:
		return cancelled(order.OrderID)
	case domain.AttemptFailed:
		reason := attempt.Reason
		if reason == "" {
			reason = "Payment failed"
		}
		return domain.PurchaseResult{
			Outcome: domain.OutcomeFailed,
			OrderID: order.OrderID,
			Kind:    domain.KindPaymentFailed,
			Error:   reason,
		}
	}

	return c.verify(ctx, order.OrderID, attempt)
}

func (c *Client) verify(ctx context.Context, orderID string, attempt domain.PaymentAttemptResult) domain.PurchaseResult {
	res := domain.PurchaseResult{PaymentID: attempt.PaymentID, OrderID: orderID}
	if attempt.OrderID != "" && attempt.OrderID != orderID {
		c.logger.Warn("checkout reported a payment for another order",
			zap.String("order_id", orderID), zap.String("reported_order_id", attempt.OrderID))
		res.Outcome, res.Kind, res.Error = domain.OutcomeFailed, domain.KindVerificationFailed, "Payment does not belong to this order"
		return res
	}
	attempt.OrderID = orderID

	v, err := c.backend.VerifyPayment(ctx, VerifyPaymentRequest{
		PaymentID: attempt.PaymentID,
		OrderID:   attempt.OrderID,
		Signature: attempt.Signature,
	})
	if err != nil {
		c.logger.Warn("verification request failed", zap.String("order_id", attempt.OrderID), zap.Error(err))
		res.Outcome, res.Kind, res.Error = domain.OutcomeFailed, domain.KindVerificationFailed, describe("Could not verify payment", err)
		return res
	}
	if !v.Verified {
		msg := v.Error
		if msg == "" {
			msg = "Payment verification failed"
		}
		c.logger.Warn("payment not verified", zap.String("order_id", attempt.OrderID), zap.String("reason", msg))
		res.Outcome, res.Kind, res.Error = domain.OutcomeFailed, domain.KindVerificationFailed, msg
		return res
	}

	c.logger.Info("purchase verified", zap.String("order_id", attempt.OrderID), zap.String("payment_id", attempt.PaymentID))
	res.Outcome = domain.OutcomeVerified
	return res
}

func (c *Client) gatewayUnavailable(req PurchaseRequest) domain.PurchaseResult {
	if !c.cfg.AllowSimulated {
		return domain.PurchaseResult{
			Outcome: domain.OutcomeFailed,
			Kind:    domain.KindGatewayUnavailable,
			Error:   "Payment gateway could not be loaded",
		}
	}
	c.logger.Warn("payment gateway unavailable, simulating purchase", zap.String("description", req.Description))
	return domain.PurchaseResult{
		Outcome:   domain.OutcomeSimulated,
		PaymentID: "sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Kind:      domain.KindGatewayUnavailable,
		Error:     "Payment gateway unavailable; purchase was simulated",
	}
}

func (c *Client) lateCallback(orderID string) func(domain.PaymentAttemptResult) {
	return func(r domain.PaymentAttemptResult) {
		c.logger.Warn("ignoring checkout callback after the attempt settled",
			zap.String("order_id", orderID), zap.String("status", string(r.Status)))
	}
}

func (c *Client) BuyCoins(ctx context.Context, bundleKey string, buyer *Buyer) domain.PurchaseResult {
	if c.catalog == nil {
		return invalidSelection("coin bundle", bundleKey)
	}
	b, ok := c.catalog.CoinBundle(bundleKey)
	if !ok {
		return invalidSelection("coin bundle", bundleKey)
	}
	desc := fmt.Sprintf("%d coins", b.Coins)
	if b.Bonus > 0 {
		desc = fmt.Sprintf("%d coins + %d bonus", b.Coins, b.Bonus)
	}
	return c.Purchase(ctx, PurchaseRequest{
		Amount:      b.Price,
		Description: desc,
		Buyer:       buyer,
		Metadata: map[string]string{
			"type":   "coins",
			"bundle": b.Key,
			"coins":  strconv.Itoa(b.Coins + b.Bonus),
		},
	})
}

func (c *Client) SubscribeToPlan(ctx context.Context, planKey string, buyer *Buyer) domain.PurchaseResult {
	if c.catalog == nil {
		return invalidSelection("plan", planKey)
	}
	p, ok := c.catalog.Plan(planKey)
	if !ok {
		return invalidSelection("plan", planKey)
	}
	return c.subscribe(ctx, "subscription", p, buyer)
}

func (c *Client) SubscribeToUnlimitedCalls(ctx context.Context, period string, buyer *Buyer) domain.PurchaseResult {
	if c.catalog == nil {
		return invalidSelection("unlimited calls period", period)
	}
	p, ok := c.catalog.UnlimitedCalls(period)
	if !ok {
		return invalidSelection("unlimited calls period", period)
	}
	return c.subscribe(ctx, "unlimited_calls", p, buyer)
}

func (c *Client) subscribe(ctx context.Context, kind string, p Plan, buyer *Buyer) domain.PurchaseResult {
	return c.Purchase(ctx, PurchaseRequest{
		Amount:      p.Price,
		Description: fmt.Sprintf("%s (%s)", p.Name, p.Period),
		Buyer:       buyer,
		Metadata: map[string]string{
			"type":      kind,
			"plan":      p.Key,
			"period":    p.Period,
			"recurring": strconv.FormatBool(p.Recurring),
		},
	})
}

func cancelled(orderID string) domain.PurchaseResult {
	return domain.PurchaseResult{
		Outcome: domain.OutcomeCancelled,
		OrderID: orderID,
		Kind:    domain.KindUserCancelled,
		Error:   "Payment cancelled by user",
	}
}

func invalidSelection(what, key string) domain.PurchaseResult {
	return domain.PurchaseFailed(domain.E(domain.KindInvalidSelection, fmt.Sprintf("Unknown %s: %q", what, key)))
}

func newReceipt() string {
	return fmt.Sprintf("rcpt_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func describe(prefix string, err error) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return prefix + ": " + be.Message
	}
	return prefix + ": " + err.Error()
}
