package repo

import (
	"coin-checkout/internal/domain"
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
)

// OrderRepo remembers which provider order was issued for a receipt so a
// retried create-order does not open a second order.
type OrderRepo interface {
	// FindByReceipt returns (nil, nil) when the receipt is unknown.
	FindByReceipt(ctx context.Context, receipt string) (*domain.Order, error)
	// CreateOrder stores the order and returns the stored row. When another
	// request stored the same receipt first, that row is returned instead.
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

func (r *orderRepo) FindByReceipt(ctx context.Context, receipt string) (*domain.Order, error) {
	var (
		order domain.Order
		notes []byte
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT order_id, receipt, amount_minor, currency, notes FROM checkout_orders WHERE receipt = $1",
		receipt,
	).Scan(&order.OrderID, &order.Receipt, &order.AmountMinor, &order.Currency, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	if err := json.Unmarshal(notes, &order.Notes); err != nil {
		return nil, errors.Wrap(err, "decode notes")
	}
	order.Amount = domain.FromMinorUnits(order.AmountMinor)
	return &order, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	notes, err := json.Marshal(order.Notes)
	if err != nil {
		return nil, errors.Wrap(err, "encode notes")
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO checkout_orders (receipt, order_id, amount_minor, currency, notes) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (receipt) DO NOTHING",
		order.Receipt, order.OrderID, order.AmountMinor, order.Currency, notes,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return order, nil
	}
	return r.FindByReceipt(ctx, order.Receipt)
}

func (r *orderRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM checkout_orders WHERE created_at < $1", before)
	if err != nil {
		return 0, errors.Wrap(err, "delete expired orders")
	}
	return res.RowsAffected()
}
