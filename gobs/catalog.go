// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   string
	Name string

	CreatedAt time.Time
}

type Product struct {
	ID          string
	Name        string
	Description string

	CategoryID string

	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductVariant struct {
	ID        string
	ProductID string

	SKU   string
	Size  string
	Color string

	Price decimal.Decimal
	Stock int64

	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
