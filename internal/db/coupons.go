package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

func (q *Queries) GetCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	var (
		coupon models.Coupon
		limit  pgtype.Int4
	)
	err := q.db.QueryRow(ctx, `
		SELECT id, code, usage_limit, used_count FROM coupons WHERE id = $1
	`, couponID).Scan(&coupon.ID, &coupon.Code, &limit, &coupon.UsedCount)
	if err != nil {
		return nil, notFound(err)
	}
	if limit.Valid {
		value := int(limit.Int32)
		coupon.UsageLimit = &value
	}
	return &coupon, nil
}

func (q *Queries) RecordCouponUsage(ctx context.Context, usage *models.CouponUsage) (bool, error) {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	cmdTag, err := q.db.Exec(ctx, `
		INSERT INTO coupon_usages (id, coupon_id, user_id, order_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (coupon_id, order_id) DO NOTHING
	`, usage.ID, usage.CouponID, usage.UserID, usage.OrderID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (q *Queries) IncrementCouponUsage(ctx context.Context, couponID uuid.UUID) error {
	cmdTag, err := q.db.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`, couponID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		found, err := q.exists(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`, couponID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		return store.ErrCouponExhausted
	}
	return nil
}
