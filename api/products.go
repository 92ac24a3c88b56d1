// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductsPath   = "/products"
	CategoriesPath = "/categories"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	IsActive    bool   `json:"is_active"`

	// MinVarPrice is the minimum price over all variants, or null when the
	// product has no variants.
	MinVarPrice *decimal.Decimal `json:"min_var_price"`

	Variants []*ProductVariant `json:"variants,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProductVariant struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Stock     int64           `json:"stock"`
	IsActive  bool            `json:"is_active"`
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

type CreateProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	IsActive    *bool            `json:"is_active"`
	Price       *decimal.Decimal `json:"price"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	IsActive    *bool            `json:"is_active"`
	Price       *decimal.Decimal `json:"price"`
}

type CreateVariantRequest struct {
	SKU      string          `json:"sku"`
	Size     string          `json:"size"`
	Color    string          `json:"color"`
	Price    decimal.Decimal `json:"price"`
	Stock    int64           `json:"stock"`
	IsActive *bool           `json:"is_active"`
}

type AddVariantStockRequest struct {
	Quantity int64 `json:"quantity"`
}

// ListProductsQuery holds the parsed query parameters of GET /products.
type ListProductsQuery struct {
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Category  string
	SortBy    string
	SortOrder string
}
