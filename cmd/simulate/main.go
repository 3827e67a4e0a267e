package main

import (
	"coin-checkout/internal/app"
	"coin-checkout/internal/domain"
	"coin-checkout/internal/infrastructure/payment"
	"coin-checkout/internal/loader"
	"coin-checkout/internal/relay"
	"coin-checkout/internal/repo"
	"coin-checkout/internal/server"
	"coin-checkout/internal/service"
	"context"
	"fmt"
	"math/rand/v2"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	keyID      = "rzp_test_simulator"
	keySecret  = "simulator_secret"
	authSecret = "simulator_app_secret"
)

// memoryHost pretends to be a page: the script "loads" after a short delay
// and defines the checkout global.
type memoryHost struct {
	mu      sync.Mutex
	globals map[string]bool
	global  string
}

func (h *memoryHost) HasGlobal(_ context.Context, name string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.globals[name], nil
}

func (h *memoryHost) InjectScript(_ context.Context, src string) (loader.Script, error) {
	s := &memoryScript{loaded: make(chan error, 1)}
	go func() {
		time.Sleep(50 * time.Millisecond)
		h.mu.Lock()
		h.globals[h.global] = true
		h.mu.Unlock()
		s.loaded <- nil
	}()
	return s, nil
}

type memoryScript struct{ loaded chan error }

func (s *memoryScript) Loaded() <-chan error { return s.loaded }
func (s *memoryScript) Remove(context.Context) error { return nil }

// mockCheckout plays the buyer against the mock provider.
type mockCheckout struct {
	gateway *payment.MockGateway
}

func (c mockCheckout) Open(_ context.Context, opts relay.CheckoutOptions, h relay.CheckoutHandlers) error {
	go func() {
		time.Sleep(20 * time.Millisecond)
		switch roll := rand.IntN(100); {
		case roll < 60:
			paymentID, signature, err := c.gateway.Pay(opts.OrderID)
			if err != nil {
				h.OnFailed(err.Error())
				return
			}
			h.OnSuccess(paymentID, opts.OrderID, signature)
		case roll < 70:
			paymentID, _, err := c.gateway.Pay(opts.OrderID)
			if err != nil {
				h.OnFailed(err.Error())
				return
			}
			h.OnSuccess(paymentID, opts.OrderID, "forged")
		case roll < 90:
			reason, err := c.gateway.Decline(opts.OrderID)
			if err != nil {
				reason = err.Error()
			}
			h.OnFailed(reason)
		default:
			h.OnDismiss()
		}
		// the widget may keep firing; the relay ignores it
		h.OnDismiss()
	}()
	return nil
}

func main() {
	ctx := context.Background()
	log := app.Logger("WARN")

	gateway := payment.NewMockGateway(keySecret, 10)
	orderService := service.NewOrderService(service.Settings{
		KeyID:           keyID,
		KeySecret:       keySecret,
		DefaultCurrency: "INR",
		MaxAmount:       decimal.NewFromInt(100000),
		CheckSettlement: true,
	}, gateway, repo.NewMemoryOrderRepo(ctx, time.Hour), repo.NewMemoryPaymentRepo(ctx, time.Hour), log)

	backendServer := httptest.NewServer(server.NewRouter(server.Deps{
		Service:    orderService,
		KeyID:      keyID,
		AuthSecret: authSecret,
		Logger:     log,
	}))
	defer backendServer.Close()

	ld := loader.New(&memoryHost{globals: map[string]bool{}, global: "Razorpay"}, "https://checkout.example/v1/checkout.js", "Razorpay", time.Second, log)
	client := relay.New(relay.Config{
		MerchantName: "Coin Store",
		Currency:     "INR",
		MaxAmount:    decimal.NewFromInt(100000),
	}, ld, relay.NewHTTPBackend(backendServer.URL, "simulator", authSecret), mockCheckout{gateway: gateway}, relay.DefaultCatalog(), log)

	bundles := []string{"coins_100", "coins_500", "coins_1200"}
	counts := map[domain.Outcome]int{}

	fmt.Println("--- STARTING SIMULATION (20 PURCHASES) ---")
	for i := 0; i < 20; i++ {
		var res domain.PurchaseResult
		switch i % 4 {
		case 0:
			res = client.SubscribeToPlan(ctx, "premium_monthly", nil)
		case 1:
			res = client.SubscribeToUnlimitedCalls(ctx, "weekly", nil)
		default:
			res = client.BuyCoins(ctx, bundles[i%len(bundles)], &relay.Buyer{Email: "buyer@example.com"})
		}
		counts[res.Outcome]++

		fmt.Printf("[%d] %-9s order=%s payment=%s", i+1, res.Outcome, res.OrderID, res.PaymentID)
		if res.Error != "" {
			fmt.Printf(" kind=%s error=%q", res.Kind, res.Error)
		}
		fmt.Println()
		if o, ok := gateway.Order(res.OrderID); ok {
			fmt.Printf("    -> provider order status: %s\n", o.Status)
		}
	}

	fmt.Println("---------------------------------------------------")
	for _, o := range []domain.Outcome{domain.OutcomeVerified, domain.OutcomeFailed, domain.OutcomeCancelled, domain.OutcomeSimulated} {
		fmt.Printf("%-9s %d\n", o, counts[o])
	}
	log.Info("simulation finished", zap.Int("purchases", 20))
}
