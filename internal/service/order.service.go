package service

import (
	"coin-checkout/internal/domain"
	"coin-checkout/internal/infrastructure/payment"
	"coin-checkout/internal/repo"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxReceiptLength = 40
	maxNotes         = 15
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var (
	ordersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "create-order calls by result",
	}, []string{"result"})
	paymentsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_verifications_total",
		Help: "verify-payment calls by result",
	}, []string{"result"})
)

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	// VerifyPayment returns a verified outcome or an error carrying the
	// reason. The outcome is non-nil whenever the input was well formed.
	VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*domain.VerificationOutcome, error)
}

type Settings struct {
	KeyID           string
	KeySecret       string
	DefaultCurrency string
	MaxAmount       decimal.Decimal
	CheckSettlement bool
}

type CreateOrderInput struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

type VerifyPaymentInput struct {
	PaymentID string
	OrderID   string
	Signature string
}

type orderService struct {
	settings    Settings
	gateway     payment.Gateway
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	logger      *zap.Logger
}

func NewOrderService(
	settings Settings,
	gateway payment.Gateway,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		settings:    settings,
		gateway:     gateway,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

var errNotConfigured = domain.E(domain.KindConfigurationError, "Payment gateway is not configured")

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (order *domain.Order, err error) {
	defer func() { ordersCreated.WithLabelValues(resultLabel(err)).Inc() }()

	if s.settings.KeyID == "" || s.settings.KeySecret == "" {
		return nil, errNotConfigured
	}
	if err := domain.ValidateAmount(in.Amount, s.settings.MaxAmount); err != nil {
		return nil, err
	}
	minor, err := domain.ToMinorUnits(in.Amount)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.settings.DefaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, domain.E(domain.KindInvalidRequest, "Currency must be a three-letter code")
	}
	if len(in.Receipt) > maxReceiptLength {
		return nil, domain.E(domain.KindInvalidRequest, fmt.Sprintf("Receipt must be at most %d characters", maxReceiptLength))
	}
	if len(in.Notes) > maxNotes {
		return nil, domain.E(domain.KindInvalidRequest, fmt.Sprintf("At most %d notes are allowed", maxNotes))
	}

	receipt := in.Receipt
	if receipt == "" {
		receipt = newReceipt()
	} else if existing := s.findByReceipt(ctx, receipt); existing != nil {
		if existing.AmountMinor != minor || existing.Currency != currency {
			return nil, domain.E(domain.KindInvalidAmount, "Receipt was already used for a different amount")
		}
		s.logger.Info("returning existing order for receipt", zap.String("receipt", receipt), zap.String("order_id", existing.OrderID))
		return existing, nil
	}

	po, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   minor,
		Currency: currency,
		Receipt:  receipt,
		Notes:    in.Notes,
	})
	if err != nil {
		s.logger.Error("provider order creation failed", zap.String("receipt", receipt), zap.Error(err))
		return nil, domain.Wrap(domain.KindOrderCreationFailed, "Failed to create order", err)
	}
	if po.Amount != minor {
		s.logger.Error("provider echoed a different amount", zap.Int64("requested", minor), zap.Int64("got", po.Amount))
		return nil, domain.E(domain.KindOrderCreationFailed, "Failed to create order")
	}

	order = &domain.Order{
		OrderID:     po.ID,
		Amount:      domain.FromMinorUnits(po.Amount),
		AmountMinor: po.Amount,
		Currency:    po.Currency,
		Receipt:     receipt,
		Notes:       s.providerNotes(po, in.Notes),
	}
	if order.Currency == "" {
		order.Currency = currency
	}

	stored, err := s.orderRepo.CreateOrder(ctx, order)
	if err != nil {
		s.logger.Warn("order not remembered for receipt", zap.String("receipt", receipt), zap.Error(err))
		return order, nil
	}
	s.logger.Info("order created", zap.String("order_id", stored.OrderID), zap.Int64("amount_minor", stored.AmountMinor), zap.String("currency", stored.Currency))
	return stored, nil
}

// providerNotes prefers the notes the provider recorded on the order.
func (s *orderService) providerNotes(po *payment.ProviderOrder, requested map[string]string) map[string]string {
	notes, err := po.NotesMap()
	if err != nil {
		s.logger.Warn("provider notes not decoded, keeping requested notes", zap.String("order_id", po.ID), zap.Error(err))
		return requested
	}
	if len(notes) == 0 {
		return requested
	}
	return notes
}

func (s *orderService) findByReceipt(ctx context.Context, receipt string) *domain.Order {
	existing, err := s.orderRepo.FindByReceipt(ctx, receipt)
	if err != nil {
		s.logger.Warn("receipt lookup failed", zap.String("receipt", receipt), zap.Error(err))
		return nil
	}
	return existing
}

func (s *orderService) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (out *domain.VerificationOutcome, err error) {
	defer func() { paymentsVerified.WithLabelValues(resultLabel(err)).Inc() }()

	if s.settings.KeySecret == "" {
		return nil, errNotConfigured
	}
	if in.PaymentID == "" || in.OrderID == "" || in.Signature == "" {
		return nil, domain.E(domain.KindInvalidRequest, "Missing payment verification parameters")
	}

	out = &domain.VerificationOutcome{PaymentID: in.PaymentID, OrderID: in.OrderID}
	reject := func(msg string) (*domain.VerificationOutcome, error) {
		out.Error = msg
		return out, domain.E(domain.KindVerificationFailed, msg)
	}

	if !payment.VerifySignature(s.settings.KeySecret, in.OrderID, in.PaymentID, in.Signature) {
		s.logger.Warn("signature mismatch", zap.String("order_id", in.OrderID), zap.String("payment_id", in.PaymentID))
		return reject("Invalid payment signature")
	}

	if s.settings.CheckSettlement {
		p, err := s.gateway.FetchPayment(ctx, in.PaymentID)
		switch {
		case err != nil:
			s.logger.Warn("settlement lookup failed, keeping signature result", zap.String("payment_id", in.PaymentID), zap.Error(err))
		case p.OrderID != "" && p.OrderID != in.OrderID:
			return reject("Payment does not belong to this order")
		case !p.Settled():
			return reject(fmt.Sprintf("Payment is not settled (status: %s)", p.Status))
		}
	}

	holder, err := s.paymentRepo.ClaimVerification(ctx, in.OrderID, in.PaymentID)
	if err != nil {
		s.logger.Warn("verification claim not recorded", zap.String("order_id", in.OrderID), zap.Error(err))
	} else if holder != in.PaymentID {
		return reject("Order was already paid by a different payment")
	}

	out.Verified = true
	s.logger.Info("payment verified", zap.String("order_id", in.OrderID), zap.String("payment_id", in.PaymentID))
	return out, nil
}

func newReceipt() string {
	return fmt.Sprintf("rcpt_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
