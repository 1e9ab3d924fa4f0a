package services

import (
	"fmt"
	"strings"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

// BuildOrderInfo builds the template data for an order email from the loaded
// aggregate. Prices come from the item snapshots, never the live catalog.
func BuildOrderInfo(storeName string, order *models.Order) *email.OrderInfo {
	info := &email.OrderInfo{
		OrderNumber: order.OrderNumber,
		StoreName:   storeName,
		OrderDate:   order.CreatedAt.Format("January 2, 2006"),
		Status:      string(order.Status),
		Subtotal:    formatPrice(order.SubtotalCents, order.Currency),
		Discount:    formatPrice(order.DiscountCents, order.Currency),
		Shipping:    formatPrice(order.ShippingCents, order.Currency),
		Tax:         formatPrice(order.TaxCents, order.Currency),
		Total:       formatPrice(order.TotalCents, order.Currency),
	}

	if order.User != nil {
		info.CustomerName = strings.TrimSpace(order.User.Name)
		info.CustomerEmail = strings.TrimSpace(order.User.Email)
	}
	if order.Address != nil {
		info.ShippingAddress = formatAddress(order.Address)
	}
	if order.Payment != nil {
		info.PaymentMethod = string(order.Payment.Method)
		info.PaymentStatus = string(order.Payment.Status)
	}
	if order.Shipment != nil {
		info.TrackingCarrier = order.Shipment.Carrier
		info.TrackingNumber = order.Shipment.TrackingNumber
		info.TrackingURL = order.Shipment.TrackingURL
	}

	for _, item := range order.Items {
		info.Items = append(info.Items, email.OrderItem{
			Name:       item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  formatPrice(item.UnitPriceCents, order.Currency),
			TotalPrice: formatPrice(item.TotalCents, order.Currency),
		})
	}
	return info
}

func formatPrice(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, strings.ToUpper(currency), cents/100, cents%100)
}

func formatAddress(a *models.Address) string {
	parts := []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country}
	nonEmpty := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			nonEmpty = append(nonEmpty, trimmed)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
