// Copyright (c) 2025 BVK Chaitanya

package discount

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Keyspace = "/discounts"

func discountKey(id string) string {
	return path.Join(Keyspace, id)
}

type CreateArgs struct {
	Name       string
	Type       string
	Scope      string
	ScopeValue string
	ProductIDs []string
	Value      decimal.Decimal
	IsActive   bool
	StartsAt   time.Time
	EndsAt     time.Time
}

func checkArgs(ctx context.Context, r kv.Reader, args *CreateArgs) error {
	if len(strings.TrimSpace(args.Name)) == 0 {
		return fault.Validationf("discount name cannot be empty")
	}
	if args.Type != "percent" && args.Type != "fixed" {
		return fault.Validationf("unsupported discount type %q", args.Type)
	}
	if !args.Value.IsPositive() {
		return fault.Validationf("discount value must be positive")
	}
	if args.Type == "percent" && args.Value.GreaterThan(decimal.NewFromInt(100)) {
		return fault.Validationf("percent discount cannot exceed 100")
	}
	switch args.Scope {
	case "all", "product_list":
		if len(args.ScopeValue) != 0 {
			return fault.Validationf("scope_value must be empty for scope %q", args.Scope)
		}
	case "category":
		if len(args.ScopeValue) == 0 {
			return fault.Validationf("scope_value is required for scope category")
		}
		if _, err := catalog.FindCategory(ctx, r, args.ScopeValue); err != nil {
			return err
		}
	case "product":
		if len(args.ScopeValue) == 0 {
			return fault.Validationf("scope_value is required for scope product")
		}
		if _, err := catalog.GetProduct(ctx, r, args.ScopeValue); err != nil {
			return err
		}
	default:
		return fault.Validationf("unsupported discount scope %q", args.Scope)
	}
	if args.Scope == "product_list" {
		if len(args.ProductIDs) == 0 {
			return fault.Validationf("product_ids cannot be empty for scope product_list")
		}
		for _, id := range args.ProductIDs {
			if _, err := catalog.GetProduct(ctx, r, id); err != nil {
				return err
			}
		}
	} else if len(args.ProductIDs) != 0 {
		return fault.Validationf("product_ids is only valid for scope product_list")
	}
	if !args.StartsAt.IsZero() && !args.EndsAt.IsZero() && args.EndsAt.Before(args.StartsAt) {
		return fault.Validationf("discount ends before it starts")
	}
	return nil
}

func Create(ctx context.Context, rw kv.ReadWriter, args *CreateArgs) (*gobs.Discount, error) {
	if err := checkArgs(ctx, rw, args); err != nil {
		return nil, err
	}
	d := &gobs.Discount{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(args.Name),
		Type:       args.Type,
		Scope:      args.Scope,
		ScopeValue: args.ScopeValue,
		ProductIDs: args.ProductIDs,
		Value:      args.Value,
		IsActive:   args.IsActive,
		StartsAt:   args.StartsAt,
		EndsAt:     args.EndsAt,
		CreatedAt:  time.Now().UTC(),
	}
	if err := kvutil.Set(ctx, rw, discountKey(d.ID), d); err != nil {
		return nil, err
	}
	return d, nil
}

func Update(ctx context.Context, rw kv.ReadWriter, id string, args *CreateArgs) (*gobs.Discount, error) {
	d, err := Get(ctx, rw, id)
	if err != nil {
		return nil, err
	}
	if err := checkArgs(ctx, rw, args); err != nil {
		return nil, err
	}
	d.Name = strings.TrimSpace(args.Name)
	d.Type = args.Type
	d.Scope = args.Scope
	d.ScopeValue = args.ScopeValue
	d.ProductIDs = args.ProductIDs
	d.Value = args.Value
	d.IsActive = args.IsActive
	d.StartsAt = args.StartsAt
	d.EndsAt = args.EndsAt
	if err := kvutil.Set(ctx, rw, discountKey(d.ID), d); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes a discount. Order lines priced under it keep their recorded
// discount id and amounts.
func Delete(ctx context.Context, rw kv.ReadWriter, id string) error {
	if _, err := Get(ctx, rw, id); err != nil {
		return err
	}
	return rw.Delete(ctx, discountKey(id))
}

func Get(ctx context.Context, r kv.Reader, id string) (*gobs.Discount, error) {
	d, err := kvutil.Get[gobs.Discount](ctx, r, discountKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("discount not found")
		}
		return nil, err
	}
	return d, nil
}

// List returns all discounts ordered ascending by id, the order BestFor
// relies on for deterministic tie-breaking.
func List(ctx context.Context, r kv.Reader) ([]*gobs.Discount, error) {
	var ds []*gobs.Discount
	begin, end := kvutil.PathRange(Keyspace)
	collect := func(ctx context.Context, r kv.Reader, key string, d *gobs.Discount) error {
		ds = append(ds, d)
		return nil
	}
	if err := kvutil.Ascend(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	return ds, nil
}
