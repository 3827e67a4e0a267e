package repo

import (
	"coin-checkout/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testOrder(receipt, id string) *domain.Order {
	return &domain.Order{
		OrderID:     id,
		Amount:      decimal.NewFromInt(299),
		AmountMinor: 29900,
		Currency:    "INR",
		Receipt:     receipt,
		Notes:       map[string]string{"type": "coins"},
	}
}

func TestMemoryOrderRepo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewMemoryOrderRepo(ctx, time.Minute)

	got, err := r.FindByReceipt(ctx, "rcpt_1")
	require.NoError(t, err)
	require.Nil(t, got)

	stored, err := r.CreateOrder(ctx, testOrder("rcpt_1", "order_a"))
	require.NoError(t, err)
	require.Equal(t, "order_a", stored.OrderID)

	// a second order for the same receipt loses to the first one
	stored, err = r.CreateOrder(ctx, testOrder("rcpt_1", "order_b"))
	require.NoError(t, err)
	require.Equal(t, "order_a", stored.OrderID)

	got, err = r.FindByReceipt(ctx, "rcpt_1")
	require.NoError(t, err)
	require.Equal(t, "order_a", got.OrderID)
	got.Notes["type"] = "mutated"

	got, err = r.FindByReceipt(ctx, "rcpt_1")
	require.NoError(t, err)
	require.Equal(t, "coins", got.Notes["type"])
}

func TestMemoryOrderRepoExpires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewMemoryOrderRepo(ctx, 10*time.Millisecond)

	_, err := r.CreateOrder(ctx, testOrder("rcpt_1", "order_a"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := r.FindByReceipt(ctx, "rcpt_1")
		return err == nil && got == nil
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryPaymentRepoClaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewMemoryPaymentRepo(ctx, time.Minute)

	holder, err := r.ClaimVerification(ctx, "order_a", "pay_1")
	require.NoError(t, err)
	require.Equal(t, "pay_1", holder)

	holder, err = r.ClaimVerification(ctx, "order_a", "pay_1")
	require.NoError(t, err)
	require.Equal(t, "pay_1", holder)

	holder, err = r.ClaimVerification(ctx, "order_a", "pay_2")
	require.NoError(t, err)
	require.Equal(t, "pay_1", holder)

	_, err = r.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
}

func TestMemoryReposDeleteExpiredCounts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orders := NewMemoryOrderRepo(ctx, 10*time.Millisecond)
	claims := NewMemoryPaymentRepo(ctx, 10*time.Millisecond)

	_, err := orders.CreateOrder(ctx, testOrder("rcpt_1", "order_a"))
	require.NoError(t, err)
	_, err = orders.CreateOrder(ctx, testOrder("rcpt_2", "order_b"))
	require.NoError(t, err)
	_, err = claims.ClaimVerification(ctx, "order_a", "pay_1")
	require.NoError(t, err)

	n, err := orders.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, n)

	time.Sleep(30 * time.Millisecond)

	n, err = orders.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	n, err = claims.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = orders.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}
