package main

import (
	"coin-checkout/internal/app"
	"coin-checkout/internal/browser"
	"coin-checkout/internal/config"
	"coin-checkout/internal/domain"
	"coin-checkout/internal/loader"
	"coin-checkout/internal/relay"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `usage: buyer coins <bundle> | plan <plan> | unlimited <weekly|monthly>`

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := app.Logger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := relay.NewHTTPBackend(cfg.BackendURL, cfg.AppID, cfg.AppAuthSecret)
	if !backend.Health(ctx) {
		log.Warn("backend health check failed", zap.String("url", cfg.BackendURL))
	}

	session, err := browser.Launch(cfg.Headless, cfg.PageURL, log)
	if err != nil {
		log.Error("browser", zap.Error(err))
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("close browser", zap.Error(err))
		}
	}()

	ld := loader.New(session.Host(), cfg.CheckoutScriptURL, browser.CheckoutGlobal, cfg.ScriptLoadTimeout, log)
	client := relay.New(relay.Config{
		PublicKey:      cfg.PublicKey,
		MerchantName:   cfg.MerchantName,
		Currency:       cfg.DefaultCurrency,
		MaxAmount:      decimal.NewFromFloat(cfg.MaxAmount),
		AllowSimulated: cfg.AllowSimulated,
	}, ld, backend, session.Checkout(), relay.DefaultCatalog(), log)

	var res domain.PurchaseResult
	switch kind, key := os.Args[1], os.Args[2]; kind {
	case "coins":
		res = client.BuyCoins(ctx, key, nil)
	case "plan":
		res = client.SubscribeToPlan(ctx, key, nil)
	case "unlimited":
		res = client.SubscribeToUnlimitedCalls(ctx, key, nil)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if !res.Success() {
		return 1
	}
	return 0
}
