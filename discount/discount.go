// Copyright (c) 2025 BVK Chaitanya

// Package discount implements the pricing rules applied to order lines. The
// selection and amount functions are pure so that pricing is reproducible
// from an order's inputs alone.
package discount

import (
	"time"

	"github.com/bvk/salesd/gobs"
	"github.com/shopspring/decimal"
)

var d100 = decimal.NewFromInt(100)

// ValidAt reports whether the discount is active inside its validity
// window. Zero bounds are open.
func ValidAt(d *gobs.Discount, now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if !d.StartsAt.IsZero() && d.StartsAt.After(now) {
		return false
	}
	if !d.EndsAt.IsZero() && d.EndsAt.Before(now) {
		return false
	}
	return true
}

// AppliesTo reports whether the discount's scope covers the given product.
// Category scoped discounts match on the category name.
func AppliesTo(d *gobs.Discount, productID, category string) bool {
	switch d.Scope {
	case "all":
		return true
	case "category":
		return len(category) != 0 && d.ScopeValue == category
	case "product":
		return d.ScopeValue == productID
	case "product_list":
		for _, id := range d.ProductIDs {
			if id == productID {
				return true
			}
		}
		return false
	}
	return false
}

// LineDiscount returns the per-unit discount amount, clamped to the
// [0, unitPrice] range.
func LineDiscount(d *gobs.Discount, unitPrice decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case "percent":
		amount = unitPrice.Mul(d.Value).Div(d100)
	case "fixed":
		amount = d.Value
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(unitPrice) {
		return unitPrice
	}
	return amount
}

// BestFor selects the applicable discount with the largest per-unit amount.
// The input must be ordered ascending by id; on equal amounts the earlier
// entry wins because the comparison is strictly-greater. Returns nil when no
// discount yields a positive amount.
func BestFor(discounts []*gobs.Discount, productID, category string, unitPrice decimal.Decimal, now time.Time) *gobs.Discount {
	var best *gobs.Discount
	var bestAmount decimal.Decimal
	for _, d := range discounts {
		if !ValidAt(d, now) || !AppliesTo(d, productID, category) {
			continue
		}
		amount := LineDiscount(d, unitPrice)
		if amount.GreaterThan(bestAmount) {
			best, bestAmount = d, amount
		}
	}
	if best == nil || !bestAmount.IsPositive() {
		return nil
	}
	return best
}

type LinePricing struct {
	DiscountID     string
	DiscountAmount decimal.Decimal
	FinalUnitPrice decimal.Decimal
	LineTotal      decimal.Decimal
}

// PriceLine computes the pricing of a single order line under the best
// applicable discount.
func PriceLine(discounts []*gobs.Discount, productID, category string, unitPrice decimal.Decimal, quantity int64, now time.Time) LinePricing {
	p := LinePricing{
		FinalUnitPrice: unitPrice,
	}
	if best := BestFor(discounts, productID, category, unitPrice, now); best != nil {
		p.DiscountID = best.ID
		p.DiscountAmount = LineDiscount(best, unitPrice)
		p.FinalUnitPrice = unitPrice.Sub(p.DiscountAmount)
		if p.FinalUnitPrice.IsNegative() {
			p.FinalUnitPrice = decimal.Zero
		}
	}
	p.LineTotal = p.FinalUnitPrice.Mul(decimal.NewFromInt(quantity))
	return p
}

// Totals recomputes an order's aggregate amounts from its lines. Subtotal is
// the undiscounted value and TotalAmount the discounted one.
func Totals(items []*gobs.OrderItem) (subtotal, discountTotal, total decimal.Decimal) {
	for _, item := range items {
		qty := decimal.NewFromInt(item.Quantity)
		subtotal = subtotal.Add(item.UnitPrice.Mul(qty))
		discountTotal = discountTotal.Add(item.DiscountAmount.Mul(qty))
		total = total.Add(item.LineTotal)
	}
	return subtotal, discountTotal, total
}
