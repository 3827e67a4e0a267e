package worker

import (
	"coin-checkout/internal/repo"
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor prunes idempotency rows older than ttl on every tick.
type Janitor struct {
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	ttl         time.Duration
	interval    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewJanitor(
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	ttl time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *Janitor {
	return &Janitor{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		ttl:         ttl,
		interval:    interval,
		logger:      logger,
		now:         time.Now,
	}
}

func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", zap.Duration("interval", j.interval), zap.Duration("ttl", j.ttl))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.process(ctx); err != nil {
				j.logger.Warn("janitor pass failed", zap.Error(err))
			}
		}
	}
}

func (j *Janitor) process(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)

	orders, err := j.orderRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return err
	}
	claims, err := j.paymentRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return err
	}
	if orders > 0 || claims > 0 {
		j.logger.Info("pruned expired rows", zap.Int64("orders", orders), zap.Int64("claims", claims))
	}
	return nil
}
