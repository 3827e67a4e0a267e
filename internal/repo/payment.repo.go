package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
)

// PaymentRepo binds an order to the first payment verified against it.
type PaymentRepo interface {
	// ClaimVerification records paymentID for orderID unless the order is
	// already claimed. It returns the payment id holding the claim.
	ClaimVerification(ctx context.Context, orderID, paymentID string) (string, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) ClaimVerification(ctx context.Context, orderID, paymentID string) (string, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO payment_claims (order_id, payment_id) VALUES ($1, $2) ON CONFLICT (order_id) DO NOTHING",
		orderID, paymentID,
	)
	if err != nil {
		return "", errors.Wrap(err, "insert claim")
	}

	var holder string
	err = r.db.QueryRowContext(ctx, "SELECT payment_id FROM payment_claims WHERE order_id = $1", orderID).Scan(&holder)
	if err != nil {
		return "", errors.Wrap(err, "select claim")
	}
	return holder, nil
}

func (r *paymentRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM payment_claims WHERE verified_at < $1", before)
	if err != nil {
		return 0, errors.Wrap(err, "delete expired claims")
	}
	return res.RowsAffected()
}
