// Copyright (c) 2025 BVK Chaitanya

// Package catalog manages categories, products and their sellable variants.
// A product's displayed price is the minimum over its variants, which can be
// absent when no variant exists yet.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CategoryKeyspace     = "/categories"
	categoryNameKeyspace = "/category-names"

	ProductKeyspace = "/products"

	VariantKeyspace        = "/variants"
	variantSKUKeyspace     = "/variant-skus"
	productVariantKeyspace = "/product-variants"
)

func categoryKey(id string) string {
	return path.Join(CategoryKeyspace, id)
}

func categoryNameKey(name string) string {
	return path.Join(categoryNameKeyspace, strings.ToLower(name))
}

func productKey(id string) string {
	return path.Join(ProductKeyspace, id)
}

func variantKey(id string) string {
	return path.Join(VariantKeyspace, id)
}

func variantSKUKey(sku string) string {
	return path.Join(variantSKUKeyspace, sku)
}

func productVariantKey(productID, variantID string) string {
	return path.Join(productVariantKeyspace, productID, variantID)
}

func CreateCategory(ctx context.Context, rw kv.ReadWriter, name string) (*gobs.Category, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return nil, fault.Validationf("category name cannot be empty")
	}
	if ok, err := kvutil.Exists(ctx, rw, categoryNameKey(name)); err != nil {
		return nil, err
	} else if ok {
		return nil, fault.Conflictf("category %q already exists", name)
	}
	c := &gobs.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := kvutil.Set(ctx, rw, categoryKey(c.ID), c); err != nil {
		return nil, err
	}
	if err := kvutil.SetString(ctx, rw, categoryNameKey(name), c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func GetCategory(ctx context.Context, r kv.Reader, id string) (*gobs.Category, error) {
	c, err := kvutil.Get[gobs.Category](ctx, r, categoryKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("category not found")
		}
		return nil, err
	}
	return c, nil
}

func FindCategory(ctx context.Context, r kv.Reader, name string) (*gobs.Category, error) {
	id, err := kvutil.GetString[string](ctx, r, categoryNameKey(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("category %q not found", name)
		}
		return nil, err
	}
	return GetCategory(ctx, r, id)
}

func ListCategories(ctx context.Context, r kv.Reader) ([]*gobs.Category, error) {
	var cs []*gobs.Category
	begin, end := kvutil.PathRange(CategoryKeyspace)
	collect := func(ctx context.Context, r kv.Reader, key string, c *gobs.Category) error {
		cs = append(cs, c)
		return nil
	}
	if err := kvutil.Ascend(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	return cs, nil
}

type CreateProductArgs struct {
	Name        string
	Description string
	Category    string
	IsActive    bool

	// Price, when set, creates a default variant with that price.
	Price *decimal.Decimal
}

func CreateProduct(ctx context.Context, rw kv.ReadWriter, args *CreateProductArgs) (*gobs.Product, error) {
	name := strings.TrimSpace(args.Name)
	if len(name) == 0 {
		return nil, fault.Validationf("product name cannot be empty")
	}

	var categoryID string
	if len(args.Category) != 0 {
		c, err := FindCategory(ctx, rw, args.Category)
		if err != nil {
			return nil, err
		}
		categoryID = c.ID
	}

	now := time.Now().UTC()
	p := &gobs.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: args.Description,
		CategoryID:  categoryID,
		IsActive:    args.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := kvutil.Set(ctx, rw, productKey(p.ID), p); err != nil {
		return nil, err
	}

	if args.Price != nil {
		if args.Price.IsNegative() {
			return nil, fault.Validationf("product price cannot be negative")
		}
		if _, err := ensureDefaultVariant(ctx, rw, p, *args.Price); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func GetProduct(ctx context.Context, r kv.Reader, id string) (*gobs.Product, error) {
	p, err := kvutil.Get[gobs.Product](ctx, r, productKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("product not found")
		}
		return nil, err
	}
	return p, nil
}

type UpdateProductArgs struct {
	Name        *string
	Description *string
	Category    *string
	IsActive    *bool
	Price       *decimal.Decimal
}

// UpdateProduct applies the non-nil fields. Toggling IsActive also toggles
// every variant; activating a product without variants synthesizes a default
// variant when a price is known.
func UpdateProduct(ctx context.Context, rw kv.ReadWriter, id string, args *UpdateProductArgs) (*gobs.Product, error) {
	p, err := GetProduct(ctx, rw, id)
	if err != nil {
		return nil, err
	}

	if args.Name != nil {
		name := strings.TrimSpace(*args.Name)
		if len(name) == 0 {
			return nil, fault.Validationf("product name cannot be empty")
		}
		p.Name = name
	}
	if args.Description != nil {
		p.Description = *args.Description
	}
	if args.Category != nil {
		if len(*args.Category) == 0 {
			p.CategoryID = ""
		} else {
			c, err := FindCategory(ctx, rw, *args.Category)
			if err != nil {
				return nil, err
			}
			p.CategoryID = c.ID
		}
	}

	variants, err := ListVariants(ctx, rw, p.ID)
	if err != nil {
		return nil, err
	}

	if args.Price != nil {
		if args.Price.IsNegative() {
			return nil, fault.Validationf("product price cannot be negative")
		}
		if len(variants) == 0 {
			v, err := ensureDefaultVariant(ctx, rw, p, *args.Price)
			if err != nil {
				return nil, err
			}
			variants = append(variants, v)
		} else {
			// Price updates flow to the default variant only.
			for _, v := range variants {
				if strings.HasPrefix(v.SKU, defaultSKUPrefix(p.ID)) {
					v.Price = *args.Price
					v.UpdatedAt = time.Now().UTC()
					if err := kvutil.Set(ctx, rw, variantKey(v.ID), v); err != nil {
						return nil, err
					}
					break
				}
			}
		}
	}

	if args.IsActive != nil {
		p.IsActive = *args.IsActive
		for _, v := range variants {
			if v.IsActive != p.IsActive {
				v.IsActive = p.IsActive
				v.UpdatedAt = time.Now().UTC()
				if err := kvutil.Set(ctx, rw, variantKey(v.ID), v); err != nil {
					return nil, err
				}
			}
		}
	}

	p.UpdatedAt = time.Now().UTC()
	if err := kvutil.Set(ctx, rw, productKey(p.ID), p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes a product and its variants. Callers must verify the
// product is not referenced by any order before deleting.
func DeleteProduct(ctx context.Context, rw kv.ReadWriter, id string) error {
	p, err := GetProduct(ctx, rw, id)
	if err != nil {
		return err
	}
	variants, err := ListVariants(ctx, rw, p.ID)
	if err != nil {
		return err
	}
	for _, v := range variants {
		if err := rw.Delete(ctx, variantSKUKey(v.SKU)); err != nil {
			return err
		}
		if err := rw.Delete(ctx, productVariantKey(p.ID, v.ID)); err != nil {
			return err
		}
		if err := rw.Delete(ctx, variantKey(v.ID)); err != nil {
			return err
		}
	}
	return rw.Delete(ctx, productKey(p.ID))
}

// MinVariantPrice returns the lowest price among all of the product's
// variants, active or not. Returns nil when the product has no variants.
func MinVariantPrice(ctx context.Context, r kv.Reader, productID string) (*decimal.Decimal, error) {
	variants, err := ListVariants(ctx, r, productID)
	if err != nil {
		return nil, err
	}
	var min *decimal.Decimal
	for _, v := range variants {
		if min == nil || v.Price.LessThan(*min) {
			p := v.Price
			min = &p
		}
	}
	return min, nil
}

type ListFilter struct {
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Category string

	// SortBy is "price" or "name"; SortOrder is "asc" or "desc".
	SortBy    string
	SortOrder string
}

type ListedProduct struct {
	Product     *gobs.Product
	MinVarPrice *decimal.Decimal
	Category    string
}

// ListProducts scans the product keyspace and applies price and category
// filters in memory. Products without variants have a null price and are
// excluded by price filters; price sorting places them last.
func ListProducts(ctx context.Context, r kv.Reader, filter *ListFilter) ([]*ListedProduct, error) {
	if filter == nil {
		filter = new(ListFilter)
	}

	var categoryID string
	if len(filter.Category) != 0 {
		c, err := FindCategory(ctx, r, filter.Category)
		if err != nil {
			if fault.IsKind(err, fault.NotFound) {
				return nil, nil
			}
			return nil, err
		}
		categoryID = c.ID
	}

	categories := make(map[string]string)
	var listed []*ListedProduct
	begin, end := kvutil.PathRange(ProductKeyspace)
	collect := func(ctx context.Context, r kv.Reader, key string, p *gobs.Product) error {
		if len(categoryID) != 0 && p.CategoryID != categoryID {
			return nil
		}
		min, err := MinVariantPrice(ctx, r, p.ID)
		if err != nil {
			return err
		}
		if filter.MinPrice != nil && (min == nil || min.LessThan(*filter.MinPrice)) {
			return nil
		}
		if filter.MaxPrice != nil && (min == nil || min.GreaterThan(*filter.MaxPrice)) {
			return nil
		}
		lp := &ListedProduct{Product: p, MinVarPrice: min}
		if len(p.CategoryID) != 0 {
			name, ok := categories[p.CategoryID]
			if !ok {
				c, err := GetCategory(ctx, r, p.CategoryID)
				if err != nil && !fault.IsKind(err, fault.NotFound) {
					return err
				}
				if c != nil {
					name = c.Name
				}
				categories[p.CategoryID] = name
			}
			lp.Category = name
		}
		listed = append(listed, lp)
		return nil
	}
	if err := kvutil.Ascend(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}

	sortProducts(listed, filter.SortBy, filter.SortOrder)
	return listed, nil
}

func sortProducts(listed []*ListedProduct, sortBy, sortOrder string) {
	desc := sortOrder == "desc"
	sort.SliceStable(listed, func(i, j int) bool {
		a, b := listed[i], listed[j]
		var less, eq bool
		switch sortBy {
		case "price":
			switch {
			case a.MinVarPrice == nil && b.MinVarPrice == nil:
				eq = true
			case a.MinVarPrice == nil:
				return false // null prices sort last in either direction
			case b.MinVarPrice == nil:
				return true
			default:
				less = a.MinVarPrice.LessThan(*b.MinVarPrice)
				eq = a.MinVarPrice.Equal(*b.MinVarPrice)
			}
		case "name":
			less = a.Product.Name < b.Product.Name
			eq = a.Product.Name == b.Product.Name
		default:
			eq = true
		}
		if eq {
			return a.Product.ID < b.Product.ID
		}
		if desc {
			return !less
		}
		return less
	})
}

func defaultSKUPrefix(productID string) string {
	return fmt.Sprintf("PRODUCT-%s-DEFAULT", productID)
}

func ensureDefaultVariant(ctx context.Context, rw kv.ReadWriter, p *gobs.Product, price decimal.Decimal) (*gobs.ProductVariant, error) {
	sku := defaultSKUPrefix(p.ID)
	for i := 2; ; i++ {
		ok, err := kvutil.Exists(ctx, rw, variantSKUKey(sku))
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		sku = fmt.Sprintf("%s-%d", defaultSKUPrefix(p.ID), i)
	}
	return CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{
		SKU:      sku,
		Price:    price,
		IsActive: p.IsActive,
	})
}
