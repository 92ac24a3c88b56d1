// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"time"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/discount"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvkgo/kv"
)

// Reprice recomputes every line's discount and the order totals. Frozen
// orders are left untouched unless force is set, which only the submission
// path uses.
func Reprice(ctx context.Context, r kv.Reader, o *gobs.Order, force bool, now time.Time) error {
	if o.PricingFrozen && !force {
		return nil
	}

	discounts, err := discount.List(ctx, r)
	if err != nil {
		return err
	}

	// Category names per product id, resolved once per order.
	categories := make(map[string]string)
	categoryOf := func(productID string) (string, error) {
		if name, ok := categories[productID]; ok {
			return name, nil
		}
		name := ""
		p, err := catalog.GetProduct(ctx, r, productID)
		if err != nil {
			if !fault.IsKind(err, fault.NotFound) {
				return "", err
			}
		} else if len(p.CategoryID) != 0 {
			c, err := catalog.GetCategory(ctx, r, p.CategoryID)
			if err != nil && !fault.IsKind(err, fault.NotFound) {
				return "", err
			}
			if c != nil {
				name = c.Name
			}
		}
		categories[productID] = name
		return name, nil
	}

	for _, item := range o.Items {
		category, err := categoryOf(item.ProductID)
		if err != nil {
			return err
		}
		p := discount.PriceLine(discounts, item.ProductID, category, item.UnitPrice, item.Quantity, now)
		item.DiscountID = p.DiscountID
		item.DiscountAmount = p.DiscountAmount
		item.FinalUnitPrice = p.FinalUnitPrice
		item.LineTotal = p.LineTotal
	}

	o.Subtotal, o.DiscountTotal, o.TotalAmount = discount.Totals(o.Items)
	return nil
}
