// Package pricing computes order totals from cart lines under a Policy.
package pricing

import (
	"fmt"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

// Line is one priced cart line.
type Line struct {
	ProductID     string
	Quantity      int
	OriginalCents int64
	// EffectiveCents equals OriginalCents unless a coupon is pinned to the line.
	EffectiveCents int64
}

type Quote struct {
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
	Currency      string
}

type Pricer struct {
	policy Policy
}

func NewPricer(policy Policy) *Pricer {
	return &Pricer{policy: policy}
}

func (p *Pricer) Policy() Policy {
	return p.policy
}

// PriceItem resolves the original and effective unit price of a cart line.
func (p *Pricer) PriceItem(item models.CartItem) Line {
	original := item.Product.PriceCents
	if item.OriginalPriceCents != nil {
		original = *item.OriginalPriceCents
	}

	effective := original
	if item.CouponID != nil && item.DiscountedPriceCents != nil && *item.DiscountedPriceCents <= original {
		effective = *item.DiscountedPriceCents
	}

	return Line{
		ProductID:      item.Product.ID.String(),
		Quantity:       item.Quantity,
		OriginalCents:  original,
		EffectiveCents: effective,
	}
}

func (p *Pricer) Quote(lines []Line) (Quote, error) {
	var subtotal, discount int64
	for _, line := range lines {
		if line.Quantity < 1 {
			return Quote{}, fmt.Errorf("line %s has invalid quantity %d", line.ProductID, line.Quantity)
		}
		if line.OriginalCents < 0 || line.EffectiveCents < 0 {
			return Quote{}, fmt.Errorf("line %s has a negative price", line.ProductID)
		}
		qty := int64(line.Quantity)
		subtotal += line.OriginalCents * qty
		discount += (line.OriginalCents - line.EffectiveCents) * qty
	}

	taxable := subtotal - discount
	tax := p.taxCents(taxable)

	shipping := p.policy.FlatShippingCents
	if taxable > p.policy.FreeShippingThresholdCents {
		shipping = 0
	}

	return Quote{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    taxable + tax + shipping,
		Currency:      p.policy.Currency,
	}, nil
}

// taxCents rounds half up to the nearest cent.
func (p *Pricer) taxCents(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return (amount*p.policy.TaxRateBPS + 5_000) / 10_000
}
