package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

const paymentColumns = `id, order_id, amount_cents, currency, method, status, transaction_id,
	paid_at, failed_at, created_at, updated_at`

type paymentScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row paymentScanner) (*models.Payment, error) {
	var (
		payment       models.Payment
		method        string
		status        string
		transactionID pgtype.Text
		paidAt        pgtype.Timestamptz
		failedAt      pgtype.Timestamptz
	)
	if err := row.Scan(
		&payment.ID, &payment.OrderID, &payment.AmountCents, &payment.Currency, &method, &status,
		&transactionID, &paidAt, &failedAt, &payment.CreatedAt, &payment.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	payment.Method = models.PaymentMethod(method)
	payment.Status = models.PaymentStatus(status)
	payment.TransactionID = transactionID.String
	if paidAt.Valid {
		payment.PaidAt = paidAt.Time
	}
	if failedAt.Valid {
		payment.FailedAt = failedAt.Time
	}
	return &payment, nil
}

func (q *Queries) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	err := q.db.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, amount_cents, currency, method, status, transaction_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`,
		payment.ID, payment.OrderID, payment.AmountCents, payment.Currency, string(payment.Method),
		string(payment.Status), nullText(payment.TransactionID), nullTime(payment.PaidAt),
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (q *Queries) getPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID))
}

func (q *Queries) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	if transactionID == "" {
		return nil, store.ErrNotFound
	}
	return scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID))
}

func (q *Queries) CompletePayment(ctx context.Context, paymentID uuid.UUID, paidAt time.Time) error {
	cmdTag, err := q.db.Exec(ctx, `
		UPDATE payments
		SET status = 'COMPLETED', paid_at = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'FAILED')
	`, paymentID, paidAt)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return q.paymentGuardError(ctx, paymentID, "expected PENDING/FAILED")
	}
	return nil
}

func (q *Queries) FailPayment(ctx context.Context, paymentID uuid.UUID, failedAt time.Time) error {
	cmdTag, err := q.db.Exec(ctx, `
		UPDATE payments
		SET status = 'FAILED', failed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, paymentID, failedAt)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return q.paymentGuardError(ctx, paymentID, "expected PENDING")
	}
	return nil
}

func (q *Queries) AttachTransaction(ctx context.Context, paymentID uuid.UUID, transactionID string) error {
	cmdTag, err := q.db.Exec(ctx, `
		UPDATE payments
		SET transaction_id = $2, updated_at = NOW()
		WHERE id = $1 AND transaction_id IS NULL AND status <> 'COMPLETED'
	`, paymentID, transactionID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return q.paymentGuardError(ctx, paymentID, "payment already has a transaction")
	}
	return nil
}

func (q *Queries) paymentGuardError(ctx context.Context, paymentID uuid.UUID, expected string) error {
	found, err := q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, paymentID)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: %s", store.ErrInvalidStatusTransition, expected)
}

func nullText(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}

func nullTime(value time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: value, Valid: !value.IsZero()}
}
