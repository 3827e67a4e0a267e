package repo

import (
	"coin-checkout/internal/domain"
	"context"
	"maps"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
)

// Memory-backed repos keep rows for ttl. Expired rows are swept by the
// cache janitor, which stops when ctx is done, and by DeleteExpired.

type memoryOrderRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	orders *cache.Cache[string, domain.Order]
}

func NewMemoryOrderRepo(ctx context.Context, ttl time.Duration) OrderRepo {
	return &memoryOrderRepo{ttl: ttl, orders: cache.NewContext[string, domain.Order](ctx)}
}

func (r *memoryOrderRepo) FindByReceipt(ctx context.Context, receipt string) (*domain.Order, error) {
	o, ok := r.orders.Get(receipt)
	if !ok {
		return nil, nil
	}
	o.Notes = maps.Clone(o.Notes)
	return &o, nil
}

func (r *memoryOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.orders.Get(order.Receipt); ok {
		existing.Notes = maps.Clone(existing.Notes)
		return &existing, nil
	}
	stored := *order
	stored.Notes = maps.Clone(order.Notes)
	r.orders.Set(order.Receipt, stored, cache.WithExpiration(r.ttl))
	return order, nil
}

// DeleteExpired drops rows past their ttl; before is implied by the ttl.
func (r *memoryOrderRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sweep(r.orders), nil
}

type memoryPaymentRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims *cache.Cache[string, string]
}

func NewMemoryPaymentRepo(ctx context.Context, ttl time.Duration) PaymentRepo {
	return &memoryPaymentRepo{ttl: ttl, claims: cache.NewContext[string, string](ctx)}
}

func (r *memoryPaymentRepo) ClaimVerification(ctx context.Context, orderID, paymentID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, ok := r.claims.Get(orderID); ok {
		return holder, nil
	}
	r.claims.Set(orderID, paymentID, cache.WithExpiration(r.ttl))
	return paymentID, nil
}

func (r *memoryPaymentRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sweep(r.claims), nil
}

func sweep[V any](c *cache.Cache[string, V]) int64 {
	n := len(c.Keys())
	c.DeleteExpired()
	return int64(n - len(c.Keys()))
}
