package main

import (
	"coin-checkout/internal/app"
	"coin-checkout/internal/config"
	"coin-checkout/internal/database"
	"coin-checkout/internal/infrastructure/payment"
	"coin-checkout/internal/repo"
	"coin-checkout/internal/server"
	"coin-checkout/internal/service"
	"coin-checkout/internal/worker"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := app.Logger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Warn("sentry init", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		orderRepo   repo.OrderRepo
		paymentRepo repo.PaymentRepo
		storeHealth func(context.Context) map[string]string
		db          database.Service
	)
	if cfg.DatabaseURL != "" {
		db, err = database.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("database", zap.Error(err))
		}
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		orderRepo = repo.NewOrderRepo(db.DB())
		paymentRepo = repo.NewPaymentRepo(db.DB())
		storeHealth = db.Health
	} else {
		orderRepo = repo.NewMemoryOrderRepo(ctx, cfg.OrderTTL)
		paymentRepo = repo.NewMemoryPaymentRepo(ctx, cfg.OrderTTL)
	}

	if !cfg.Provider.Configured() {
		log.Warn("RAZORPAY_KEY_ID or RAZORPAY_KEY_SECRET is missing, checkout endpoints will answer ConfigurationError")
	}
	gateway := payment.NewRazorpayGateway(cfg.Provider.BaseURL, cfg.Provider.KeyID, cfg.Provider.KeySecret, log)
	orderService := service.NewOrderService(service.Settings{
		KeyID:           cfg.Provider.KeyID,
		KeySecret:       cfg.Provider.KeySecret,
		DefaultCurrency: cfg.DefaultCurrency,
		MaxAmount:       decimal.NewFromFloat(cfg.MaxAmount),
		CheckSettlement: cfg.CheckSettlement,
	}, gateway, orderRepo, paymentRepo, log)

	janitor := worker.NewJanitor(orderRepo, paymentRepo, cfg.OrderTTL, cfg.JanitorInterval, log)
	go janitor.Run(ctx)

	router := server.NewRouter(server.Deps{
		Service:     orderService,
		KeyID:       cfg.Provider.KeyID,
		AuthSecret:  cfg.AppAuthSecret,
		RateRPS:     cfg.RateRPS,
		RateBurst:   cfg.RateBurst,
		StoreHealth: storeHealth,
		Logger:      log,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%v", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", zap.Int("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen and serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = httpServer.Shutdown(shutdownCtx)
	if db != nil {
		err = multierr.Append(err, db.Close())
	}
	if err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
