package repo

import (
	"coin-checkout/internal/database"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

func newPostgres(t *testing.T) database.Service {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("checkout"),
		postgres.WithUsername("checkout"),
		postgres.WithPassword("checkout"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestPostgresRepos(t *testing.T) {
	db := newPostgres(t)
	ctx := context.Background()

	require.Equal(t, "up", db.Health(ctx)["status"])

	orders := NewOrderRepo(db.DB())
	got, err := orders.FindByReceipt(ctx, "rcpt_1")
	require.NoError(t, err)
	require.Nil(t, got)

	stored, err := orders.CreateOrder(ctx, testOrder("rcpt_1", "order_a"))
	require.NoError(t, err)
	require.Equal(t, "order_a", stored.OrderID)

	stored, err = orders.CreateOrder(ctx, testOrder("rcpt_1", "order_b"))
	require.NoError(t, err)
	require.Equal(t, "order_a", stored.OrderID)
	require.Equal(t, int64(29900), stored.AmountMinor)
	require.Equal(t, "299", stored.Amount.String())
	require.Equal(t, "coins", stored.Notes["type"])

	payments := NewPaymentRepo(db.DB())
	holder, err := payments.ClaimVerification(ctx, "order_a", "pay_1")
	require.NoError(t, err)
	require.Equal(t, "pay_1", holder)
	holder, err = payments.ClaimVerification(ctx, "order_a", "pay_2")
	require.NoError(t, err)
	require.Equal(t, "pay_1", holder)

	n, err := orders.DeleteExpired(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = payments.DeleteExpired(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
