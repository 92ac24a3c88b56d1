// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"encoding/json"
	"time"

	"github.com/bvk/salesd/api"
	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/gobs"
)

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t
	return &v
}

func toAPIUser(u *gobs.User) *api.User {
	return &api.User{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		DNI:        u.DNI,
		HasAccount: u.HasAccount,
		IsAdmin:    u.IsAdmin,
		IsActive:   u.IsActive,
	}
}

func toAPICategory(c *gobs.Category) *api.Category {
	return &api.Category{ID: c.ID, Name: c.Name}
}

func toAPIVariant(v *gobs.ProductVariant) *api.ProductVariant {
	return &api.ProductVariant{
		ID:        v.ID,
		ProductID: v.ProductID,
		SKU:       v.SKU,
		Size:      v.Size,
		Color:     v.Color,
		Price:     v.Price,
		Stock:     v.Stock,
		IsActive:  v.IsActive,
	}
}

func toAPIProduct(p *gobs.Product, category string, listed *catalog.ListedProduct, variants []*gobs.ProductVariant) *api.Product {
	out := &api.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    category,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if listed != nil {
		out.MinVarPrice = listed.MinVarPrice
	}
	for _, v := range variants {
		out.Variants = append(out.Variants, toAPIVariant(v))
	}
	return out
}

func toAPIOrder(o *gobs.Order) *api.Order {
	out := &api.Order{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		Currency:      o.Currency,
		Subtotal:      o.Subtotal,
		DiscountTotal: o.DiscountTotal,
		TotalAmount:   o.TotalAmount,
		SubmittedAt:   timePtr(o.SubmittedAt),
		PaidAt:        timePtr(o.PaidAt),
		CancelledAt:   timePtr(o.CancelledAt),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, &api.OrderItem{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountID:     item.DiscountID,
			DiscountAmount: item.DiscountAmount,
			FinalUnitPrice: item.FinalUnitPrice,
			LineTotal:      item.LineTotal,
		})
	}
	return out
}

func toAPIPayment(p *gobs.Payment) *api.Payment {
	out := &api.Payment{
		ID:                p.ID,
		OrderID:           p.OrderID,
		Method:            p.Method,
		Status:            p.Status,
		Amount:            p.Amount,
		Currency:          p.Currency,
		ExternalReference: p.ExternalReference,
		ProviderStatus:    p.ProviderStatus,
		ExpiresAt:         timePtr(p.ExpiresAt),
		PaidAt:            timePtr(p.PaidAt),
		CreatedAt:         p.CreatedAt,
	}
	if len(p.ProviderPayload) != 0 {
		out.ProviderPayload = json.RawMessage(p.ProviderPayload)
	}
	return out
}

func toAPIReservation(v *gobs.StockReservation) *api.StockReservation {
	return &api.StockReservation{
		ID:                v.ID,
		OrderID:           v.OrderID,
		OrderItemID:       v.OrderItemID,
		VariantID:         v.VariantID,
		Quantity:          v.Quantity,
		Status:            v.Status,
		ExpiresAt:         v.ExpiresAt,
		ReactivationCount: v.ReactivationCount,
		ReleaseReason:     v.ReleaseReason,
	}
}

func toAPIDiscount(d *gobs.Discount) *api.Discount {
	return &api.Discount{
		ID:         d.ID,
		Name:       d.Name,
		Type:       d.Type,
		Scope:      d.Scope,
		ScopeValue: d.ScopeValue,
		ProductIDs: d.ProductIDs,
		Value:      d.Value,
		IsActive:   d.IsActive,
		StartsAt:   timePtr(d.StartsAt),
		EndsAt:     timePtr(d.EndsAt),
	}
}

func toAPITurn(t *gobs.Turn) *api.Turn {
	return &api.Turn{
		ID:          t.ID,
		UserID:      t.UserID,
		Status:      t.Status,
		Notes:       t.Notes,
		ScheduledAt: timePtr(t.ScheduledAt),
		CreatedAt:   t.CreatedAt,
	}
}
