package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

func seededProduct(t *testing.T, s *Store, stock int) models.Product {
	t.Helper()
	product := models.Product{ID: uuid.New(), Name: "Vitamin C Serum", PriceCents: 50000, Stock: stock, Active: true}
	s.PutProduct(product)
	return product
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	s := New()
	product := seededProduct(t, s, 10)
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		if err := tx.DecrementStock(context.Background(), product.ID, 3); err != nil {
			return err
		}
		inTx, err := tx.GetProduct(context.Background(), product.ID)
		if err != nil {
			return err
		}
		if inTx.Stock != 7 {
			t.Errorf("stock inside tx = %d, want 7", inTx.Stock)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}

	got, err := s.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.Stock != 10 {
		t.Fatalf("stock after rollback = %d, want 10", got.Stock)
	}
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	s := New()
	product := seededProduct(t, s, 10)

	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.DecrementStock(context.Background(), product.ID, 4)
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	got, _ := s.GetProduct(context.Background(), product.ID)
	if got.Stock != 6 {
		t.Fatalf("stock = %d, want 6", got.Stock)
	}
}

func TestDecrementStock_GuardsAgainstNegative(t *testing.T) {
	t.Parallel()

	s := New()
	product := seededProduct(t, s, 2)

	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.DecrementStock(context.Background(), product.ID, 3)
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	got, _ := s.GetProduct(context.Background(), product.ID)
	if got.Stock != 2 {
		t.Fatalf("stock = %d, want 2", got.Stock)
	}
}

func TestDecrementStock_ConcurrentCallersNeverOversell(t *testing.T) {
	t.Parallel()

	s := New()
	product := seededProduct(t, s, 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(context.Background(), func(tx store.Tx) error {
				return tx.DecrementStock(context.Background(), product.ID, 1)
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, store.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 5 {
		t.Fatalf("successes = %d, want 5", successes)
	}
	got, _ := s.GetProduct(context.Background(), product.ID)
	if got.Stock != 0 {
		t.Fatalf("stock = %d, want 0", got.Stock)
	}
}

func TestCouponUsage_OnePerOrderAndLimit(t *testing.T) {
	t.Parallel()

	s := New()
	limit := 1
	coupon := models.Coupon{ID: uuid.New(), Code: "GLOW10", UsageLimit: &limit}
	s.PutCoupon(coupon)
	orderID := uuid.New()

	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		inserted, err := tx.RecordCouponUsage(ctx, &models.CouponUsage{CouponID: coupon.ID, UserID: uuid.New(), OrderID: orderID})
		if err != nil || !inserted {
			t.Fatalf("first RecordCouponUsage() = %v, %v", inserted, err)
		}
		inserted, err = tx.RecordCouponUsage(ctx, &models.CouponUsage{CouponID: coupon.ID, UserID: uuid.New(), OrderID: orderID})
		if err != nil || inserted {
			t.Fatalf("duplicate RecordCouponUsage() = %v, %v", inserted, err)
		}
		if err := tx.IncrementCouponUsage(ctx, coupon.ID); err != nil {
			return err
		}
		return tx.IncrementCouponUsage(ctx, coupon.ID)
	})
	if !errors.Is(err, store.ErrCouponExhausted) {
		t.Fatalf("expected ErrCouponExhausted, got %v", err)
	}

	got, _ := s.GetCoupon(context.Background(), coupon.ID)
	if got.UsedCount != 0 {
		t.Fatalf("used count after rollback = %d, want 0", got.UsedCount)
	}
	if usages := s.CouponUsages(coupon.ID); len(usages) != 0 {
		t.Fatalf("usages after rollback = %d, want 0", len(usages))
	}
}

func TestPaymentGuards(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	order := &models.Order{OrderNumber: "ORD-1", UserID: uuid.New(), Status: models.StatusPending, Items: []models.OrderItem{{ProductID: uuid.New(), Quantity: 1}}}
	payment := &models.Payment{Method: models.PaymentMethodStripe, Status: models.PaymentPending}

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		payment.OrderID = order.ID
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		return tx.AttachTransaction(ctx, payment.ID, "pi_123")
	})
	if err != nil {
		t.Fatalf("setup error = %v", err)
	}

	paidAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.WithTx(ctx, func(tx store.Tx) error { return tx.CompletePayment(ctx, payment.ID, paidAt) }); err != nil {
		t.Fatalf("CompletePayment() error = %v", err)
	}
	err = s.WithTx(ctx, func(tx store.Tx) error { return tx.CompletePayment(ctx, payment.ID, paidAt.Add(time.Hour)) })
	if !errors.Is(err, store.ErrInvalidStatusTransition) {
		t.Fatalf("second CompletePayment() error = %v, want ErrInvalidStatusTransition", err)
	}
	err = s.WithTx(ctx, func(tx store.Tx) error { return tx.FailPayment(ctx, payment.ID, paidAt) })
	if !errors.Is(err, store.ErrInvalidStatusTransition) {
		t.Fatalf("FailPayment() after completion error = %v, want ErrInvalidStatusTransition", err)
	}

	got, err := s.GetPaymentByTransactionID(ctx, "pi_123")
	if err != nil {
		t.Fatalf("GetPaymentByTransactionID() error = %v", err)
	}
	if got.Status != models.PaymentCompleted || !got.PaidAt.Equal(paidAt) {
		t.Fatalf("payment = %+v", got)
	}
}

func TestUpdateOrderStatus_Guarded(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	order := &models.Order{OrderNumber: "ORD-2", UserID: uuid.New(), Status: models.StatusPending, Items: []models.OrderItem{{ProductID: uuid.New(), Quantity: 1}}}
	if err := s.WithTx(ctx, func(tx store.Tx) error { return tx.CreateOrder(ctx, order) }); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.UpdateOrderStatus(ctx, order.ID, []models.OrderStatus{models.StatusProcessing}, models.StatusShipped)
	})
	if !errors.Is(err, store.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	if _, err := s.GetOrder(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown order, got %v", err)
	}
}
