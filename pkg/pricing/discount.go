// Package pricing computes effective product prices from a base price and an
// optional discount. All arithmetic is plain float64; rounding happens only
// when amounts are formatted for display.
package pricing

import (
	"math"

	"codstore.dev/storefront/pkg/apperr"
)

type DiscountType string

const (
	Percentage DiscountType = "percentage"
	Fixed      DiscountType = "fixed"
)

type Discount struct {
	Type   DiscountType `json:"type" bson:"type"`
	Value  float64      `json:"value" bson:"value"`
	Active bool         `json:"active" bson:"active"`
}

// Validate enforces 0 <= value <= 100 for percentages and value >= 0 for fixed amounts.
func (d *Discount) Validate() error {
	if d == nil {
		return nil
	}
	if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) {
		return apperr.Validation("discount.value", "discount value must be a finite number")
	}
	switch d.Type {
	case Percentage:
		if d.Value < 0 || d.Value > 100 {
			return apperr.Validation("discount.value", "percentage discount must be between 0 and 100")
		}
	case Fixed:
		if d.Value < 0 {
			return apperr.Validation("discount.value", "fixed discount must not be negative")
		}
	default:
		return apperr.Validation("discount.type", "discount type must be percentage or fixed")
	}
	return nil
}

// EffectivePrice returns the price after applying an active discount.
func EffectivePrice(basePrice float64, d *Discount) float64 {
	if d == nil || !d.Active {
		return basePrice
	}
	if d.Type == Percentage {
		return basePrice * (1 - d.Value/100)
	}
	return math.Max(0, basePrice-d.Value)
}

// DiscountAmount is how much an active discount takes off the base price.
func DiscountAmount(basePrice float64, d *Discount) float64 {
	if d == nil || !d.Active {
		return 0
	}
	return basePrice - EffectivePrice(basePrice, d)
}

func HasActiveDiscount(d *Discount) bool {
	return d != nil && d.Active && d.Value > 0
}
