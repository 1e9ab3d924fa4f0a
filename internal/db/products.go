package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

func (q *Queries) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := q.db.QueryRow(ctx, `
		SELECT id, name, price_cents, stock, active FROM products WHERE id = $1
	`, productID).Scan(&product.ID, &product.Name, &product.PriceCents, &product.Stock, &product.Active)
	if err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// DecrementStock is a single conditional write so concurrent checkouts can
// never drive stock below zero.
func (q *Queries) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be positive", store.ErrInsufficientStock)
	}
	cmdTag, err := q.db.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		found, err := q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (q *Queries) IncrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	cmdTag, err := q.db.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
