// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID     string
	UserID string

	// Status is one of draft, submitted, paid, cancelled.
	Status string

	Currency string

	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TotalAmount   decimal.Decimal

	// PricingFrozen is set at submission; repricing stops afterwards.
	PricingFrozen   bool
	PricingFrozenAt time.Time

	Items []*OrderItem

	SubmittedAt time.Time
	PaidAt      time.Time
	CancelledAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID string

	ProductID string
	VariantID string

	Quantity int64

	UnitPrice decimal.Decimal

	// DiscountID records the discount applied to this line at pricing time,
	// if any. It may refer to a discount that was deleted later.
	DiscountID string

	DiscountAmount decimal.Decimal
	FinalUnitPrice decimal.Decimal
	LineTotal      decimal.Decimal
}

type Discount struct {
	ID   string
	Name string

	// Type is percent or fixed.
	Type string

	// Scope is one of all, category, product, product_list.
	Scope string

	// ScopeValue holds the category name or product id for category and
	// product scopes; empty otherwise.
	ScopeValue string

	// ProductIDs holds the product set for the product_list scope.
	ProductIDs []string

	Value decimal.Decimal

	IsActive bool

	// Zero StartsAt or EndsAt means the bound is open.
	StartsAt time.Time
	EndsAt   time.Time

	CreatedAt time.Time
}
