package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

func (q *Queries) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx, `INSERT INTO shipments (id, order_id) VALUES ($1, $2)`, shipment.ID, shipment.OrderID)
	if err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

func (q *Queries) getShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var (
		shipment                                 models.Shipment
		carrier, trackingNumber, trackingURL     pgtype.Text
		notes                                    pgtype.Text
		shippedAt, deliveredAt, estimatedArrival pgtype.Timestamptz
	)
	err := q.db.QueryRow(ctx, `
		SELECT id, order_id, carrier, tracking_number, tracking_url, shipped_at, delivered_at,
		       estimated_delivery, notes
		FROM shipments
		WHERE order_id = $1
	`, orderID).Scan(
		&shipment.ID, &shipment.OrderID, &carrier, &trackingNumber, &trackingURL,
		&shippedAt, &deliveredAt, &estimatedArrival, &notes,
	)
	if err != nil {
		return nil, notFound(err)
	}
	shipment.Carrier = carrier.String
	shipment.TrackingNumber = trackingNumber.String
	shipment.TrackingURL = trackingURL.String
	shipment.Notes = notes.String
	if shippedAt.Valid {
		shipment.ShippedAt = shippedAt.Time
	}
	if deliveredAt.Valid {
		shipment.DeliveredAt = deliveredAt.Time
	}
	if estimatedArrival.Valid {
		shipment.EstimatedDelivery = estimatedArrival.Time
	}
	return &shipment, nil
}

func (q *Queries) UpdateShipment(ctx context.Context, shipment *models.Shipment) error {
	cmdTag, err := q.db.Exec(ctx, `
		UPDATE shipments
		SET carrier = $2, tracking_number = $3, tracking_url = $4, shipped_at = $5,
		    delivered_at = $6, estimated_delivery = $7, notes = $8
		WHERE order_id = $1
	`,
		shipment.OrderID, nullText(shipment.Carrier), nullText(shipment.TrackingNumber),
		nullText(shipment.TrackingURL), nullTime(shipment.ShippedAt), nullTime(shipment.DeliveredAt),
		nullTime(shipment.EstimatedDelivery), nullText(shipment.Notes),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
