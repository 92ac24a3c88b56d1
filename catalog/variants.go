// Copyright (c) 2025 BVK Chaitanya

package catalog

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateVariantArgs struct {
	SKU      string
	Size     string
	Color    string
	Price    decimal.Decimal
	Stock    int64
	IsActive bool
}

func CreateVariant(ctx context.Context, rw kv.ReadWriter, productID string, args *CreateVariantArgs) (*gobs.ProductVariant, error) {
	if _, err := GetProduct(ctx, rw, productID); err != nil {
		return nil, err
	}
	sku := strings.TrimSpace(args.SKU)
	if len(sku) == 0 {
		return nil, fault.Validationf("variant sku cannot be empty")
	}
	if args.Price.IsNegative() {
		return nil, fault.Validationf("variant price cannot be negative")
	}
	if args.Stock < 0 {
		return nil, fault.Validationf("variant stock cannot be negative")
	}
	if ok, err := kvutil.Exists(ctx, rw, variantSKUKey(sku)); err != nil {
		return nil, err
	} else if ok {
		return nil, fault.Conflictf("variant sku %q already exists", sku)
	}

	now := time.Now().UTC()
	v := &gobs.ProductVariant{
		ID:        uuid.New().String(),
		ProductID: productID,
		SKU:       sku,
		Size:      args.Size,
		Color:     args.Color,
		Price:     args.Price,
		Stock:     args.Stock,
		IsActive:  args.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := kvutil.Set(ctx, rw, variantKey(v.ID), v); err != nil {
		return nil, err
	}
	if err := kvutil.SetString(ctx, rw, variantSKUKey(sku), v.ID); err != nil {
		return nil, err
	}
	if err := kvutil.SetString(ctx, rw, productVariantKey(productID, v.ID), v.ID); err != nil {
		return nil, err
	}
	return v, nil
}

// GetVariant returns an active variant whose parent product still exists.
// Inactive or orphaned variants are reported as not found.
func GetVariant(ctx context.Context, r kv.Reader, id string) (*gobs.ProductVariant, error) {
	v, err := getVariantAny(ctx, r, id)
	if err != nil {
		return nil, err
	}
	if !v.IsActive {
		return nil, fault.NotFoundf("variant not found")
	}
	if _, err := GetProduct(ctx, r, v.ProductID); err != nil {
		if fault.IsKind(err, fault.NotFound) {
			return nil, fault.NotFoundf("variant not found")
		}
		return nil, err
	}
	return v, nil
}

func getVariantAny(ctx context.Context, r kv.Reader, id string) (*gobs.ProductVariant, error) {
	v, err := kvutil.Get[gobs.ProductVariant](ctx, r, variantKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("variant not found")
		}
		return nil, err
	}
	return v, nil
}

func ListVariants(ctx context.Context, r kv.Reader, productID string) ([]*gobs.ProductVariant, error) {
	var ids []string
	begin, end := kvutil.PathRange(productVariantKeyspace + "/" + productID)
	collect := func(ctx context.Context, key, id string) error {
		ids = append(ids, id)
		return nil
	}
	if err := kvutil.AscendStrings(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	var vs []*gobs.ProductVariant
	for _, id := range ids {
		v, err := getVariantAny(ctx, r, id)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// AddStock increments a variant's stock count.
func AddStock(ctx context.Context, rw kv.ReadWriter, id string, quantity int64) (*gobs.ProductVariant, error) {
	if quantity <= 0 {
		return nil, fault.Validationf("quantity must be positive")
	}
	v, err := getVariantAny(ctx, rw, id)
	if err != nil {
		return nil, err
	}
	v.Stock += quantity
	v.UpdatedAt = time.Now().UTC()
	if err := kvutil.Set(ctx, rw, variantKey(v.ID), v); err != nil {
		return nil, err
	}
	return v, nil
}

// TakeStock decrements a variant's stock, failing when the remaining stock
// is insufficient.
func TakeStock(ctx context.Context, rw kv.ReadWriter, id string, quantity int64) (*gobs.ProductVariant, error) {
	if quantity <= 0 {
		return nil, fault.Validationf("quantity must be positive")
	}
	v, err := getVariantAny(ctx, rw, id)
	if err != nil {
		return nil, err
	}
	if v.Stock < quantity {
		return nil, fault.Conflictf("insufficient stock for variant %s", v.ID)
	}
	v.Stock -= quantity
	v.UpdatedAt = time.Now().UTC()
	if err := kvutil.Set(ctx, rw, variantKey(v.ID), v); err != nil {
		return nil, err
	}
	return v, nil
}
