package models

import (
	"time"

	"github.com/google/uuid"
)

// Shipment fields stay empty until fulfillment populates them.
type Shipment struct {
	ID                uuid.UUID `json:"id"`
	OrderID           uuid.UUID `json:"order_id"`
	Carrier           string    `json:"carrier,omitempty"`
	TrackingNumber    string    `json:"tracking_number,omitempty"`
	TrackingURL       string    `json:"tracking_url,omitempty"`
	ShippedAt         time.Time `json:"shipped_at,omitzero"`
	DeliveredAt       time.Time `json:"delivered_at,omitzero"`
	EstimatedDelivery time.Time `json:"estimated_delivery,omitzero"`
	Notes             string    `json:"notes,omitempty"`
}
