package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

func (q *Queries) GetCartWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID}
	if err := q.db.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cart.ID); err != nil {
		return nil, notFound(err)
	}

	rows, err := q.db.Query(ctx, `
		SELECT ci.id, ci.quantity, ci.original_price_cents, ci.discounted_price_cents, ci.coupon_id,
		       p.id, p.name, p.price_cents, p.stock, p.active
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       models.CartItem
			original   pgtype.Int8
			discounted pgtype.Int8
			couponID   pgtype.UUID
		)
		if err := rows.Scan(
			&item.ID, &item.Quantity, &original, &discounted, &couponID,
			&item.Product.ID, &item.Product.Name, &item.Product.PriceCents, &item.Product.Stock, &item.Product.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.CartID = cart.ID
		item.OriginalPriceCents = int8Ptr(original)
		item.DiscountedPriceCents = int8Ptr(discounted)
		item.CouponID = uuidPtr(couponID)
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cart, nil
}

func (q *Queries) DeleteCartItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

func (q *Queries) GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := q.db.QueryRow(ctx, `
		SELECT id, user_id, line1, line2, city, state, postal_code, country
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`, addressID, userID).Scan(
		&address.ID, &address.UserID, &address.Line1, &address.Line2,
		&address.City, &address.State, &address.PostalCode, &address.Country,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &address, nil
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func uuidPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

func nullUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
