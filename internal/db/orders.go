package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

func (q *Queries) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	err := q.db.QueryRow(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, address_id, status, subtotal_cents, discount_cents,
			tax_cents, shipping_cents, total_cents, currency, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`,
		order.ID, order.OrderNumber, order.UserID, order.AddressID, string(order.Status),
		order.SubtotalCents, order.DiscountCents, order.TaxCents, order.ShippingCents,
		order.TotalCents, order.Currency, order.Notes,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		batch.Queue(`
			INSERT INTO order_items (
				id, order_id, position, product_id, product_name, quantity,
				original_price_cents, unit_price_cents, total_cents, coupon_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			item.ID, order.ID, i, item.ProductID, item.ProductName, item.Quantity,
			item.OriginalPriceCents, item.UnitPriceCents, item.TotalCents, nullUUID(item.CouponID),
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := q.db.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return results.Close()
}

func (q *Queries) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var (
		order  models.Order
		status string
	)
	err := q.db.QueryRow(ctx, `
		SELECT id, order_number, user_id, address_id, status, subtotal_cents, discount_cents,
		       tax_cents, shipping_cents, total_cents, currency, notes, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID, &order.OrderNumber, &order.UserID, &order.AddressID, &status,
		&order.SubtotalCents, &order.DiscountCents, &order.TaxCents, &order.ShippingCents,
		&order.TotalCents, &order.Currency, &order.Notes, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	order.Status = models.OrderStatus(status)

	if order.Items, err = q.listOrderItems(ctx, order.ID); err != nil {
		return nil, err
	}
	if order.Address, err = q.GetAddress(ctx, order.UserID, order.AddressID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if order.Payment, err = q.getPaymentByOrderID(ctx, order.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if order.Shipment, err = q.getShipmentByOrderID(ctx, order.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if order.User, err = q.getUserSummary(ctx, order.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return &order, nil
}

func (q *Queries) listOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, original_price_cents,
		       unit_price_cents, total_cents, coupon_id
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var (
			item     models.OrderItem
			couponID pgtype.UUID
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity,
			&item.OriginalPriceCents, &item.UnitPriceCents, &item.TotalCents, &couponID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.CouponID = uuidPtr(couponID)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *Queries) getUserSummary(ctx context.Context, userID uuid.UUID) (*models.UserSummary, error) {
	var user models.UserSummary
	err := q.db.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, userID).
		Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from []models.OrderStatus, to models.OrderStatus) error {
	allowed := make([]string, len(from))
	for i, status := range from {
		allowed[i] = string(status)
	}

	cmdTag, err := q.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, string(to), orderID, allowed)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		var current string
		if err := q.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current); err != nil {
			return notFound(err)
		}
		return fmt.Errorf("%w: order is %s", store.ErrInvalidStatusTransition, current)
	}
	return nil
}
