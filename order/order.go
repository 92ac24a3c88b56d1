// Copyright (c) 2025 BVK Chaitanya

// Package order implements the order aggregate: draft assembly, line item
// maintenance with repricing, and the monotonic draft, submitted, paid,
// cancelled state machine. Each user holds at most one draft at a time.
package order

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
)

const (
	Keyspace = "/orders"

	draftKeyspace     = "/order-drafts"
	userOrderKeyspace = "/user-orders"
)

func orderKey(id string) string {
	return path.Join(Keyspace, id)
}

func draftKey(userID string) string {
	return path.Join(draftKeyspace, userID)
}

func userOrderKey(userID, orderID string) string {
	return path.Join(userOrderKeyspace, userID, orderID)
}

func Get(ctx context.Context, r kv.Reader, id string) (*gobs.Order, error) {
	o, err := kvutil.Get[gobs.Order](ctx, r, orderKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("order not found")
		}
		return nil, err
	}
	return o, nil
}

// GetOwned loads an order and hides other users' orders from non-admins.
func GetOwned(ctx context.Context, r kv.Reader, orderID, userID string, isAdmin bool) (*gobs.Order, error) {
	o, err := Get(ctx, r, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, fault.NotFoundf("order not found")
	}
	return o, nil
}

func Save(ctx context.Context, rw kv.ReadWriter, o *gobs.Order) error {
	o.UpdatedAt = time.Now().UTC()
	return kvutil.Set(ctx, rw, orderKey(o.ID), o)
}

// GetOrCreateDraft returns the user's draft order, creating an empty one
// when none exists. The created flag reports whether a new draft was made.
func GetOrCreateDraft(ctx context.Context, rw kv.ReadWriter, userID, currency string) (*gobs.Order, bool, error) {
	id, err := kvutil.GetString[string](ctx, rw, draftKey(userID))
	if err == nil {
		o, err := Get(ctx, rw, id)
		if err != nil {
			return nil, false, err
		}
		return o, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	now := time.Now().UTC()
	o := &gobs.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    "draft",
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := kvutil.Set(ctx, rw, orderKey(o.ID), o); err != nil {
		return nil, false, err
	}
	if err := kvutil.SetString(ctx, rw, draftKey(userID), o.ID); err != nil {
		return nil, false, err
	}
	if err := kvutil.SetString(ctx, rw, userOrderKey(userID, o.ID), o.ID); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// AddItem adds a variant to the user's draft, merging quantity into an
// existing line for the same variant, and reprices the order.
func AddItem(ctx context.Context, rw kv.ReadWriter, userID, currency, variantID string, quantity int64) (*gobs.Order, error) {
	if quantity <= 0 {
		return nil, fault.Validationf("quantity must be positive")
	}
	v, err := catalog.GetVariant(ctx, rw, variantID)
	if err != nil {
		return nil, err
	}

	o, _, err := GetOrCreateDraft(ctx, rw, userID, currency)
	if err != nil {
		return nil, err
	}

	var item *gobs.OrderItem
	for _, it := range o.Items {
		if it.VariantID == variantID {
			item = it
			break
		}
	}
	if item != nil {
		item.Quantity += quantity
	} else {
		o.Items = append(o.Items, &gobs.OrderItem{
			ID:        uuid.New().String(),
			ProductID: v.ProductID,
			VariantID: v.ID,
			Quantity:  quantity,
			UnitPrice: v.Price,
		})
	}

	if err := Reprice(ctx, rw, o, false, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := Save(ctx, rw, o); err != nil {
		return nil, err
	}
	return o, nil
}

// RemoveItem deletes a line from the user's draft and reprices it.
func RemoveItem(ctx context.Context, rw kv.ReadWriter, userID, itemID string) (*gobs.Order, error) {
	id, err := kvutil.GetString[string](ctx, rw, draftKey(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("order item not found")
		}
		return nil, err
	}
	o, err := Get(ctx, rw, id)
	if err != nil {
		return nil, err
	}

	found := false
	items := o.Items[:0]
	for _, it := range o.Items {
		if it.ID == itemID {
			found = true
			continue
		}
		items = append(items, it)
	}
	if !found {
		return nil, fault.NotFoundf("order item not found")
	}
	o.Items = items

	if err := Reprice(ctx, rw, o, false, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := Save(ctx, rw, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListForUser returns the ids of a user's orders.
func ListForUser(ctx context.Context, r kv.Reader, userID string) ([]string, error) {
	var ids []string
	begin, end := kvutil.PathRange(path.Join(userOrderKeyspace, userID))
	collect := func(ctx context.Context, key, id string) error {
		ids = append(ids, id)
		return nil
	}
	if err := kvutil.AscendStrings(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	return ids, nil
}

// ProductInUse reports whether any order line references the product.
func ProductInUse(ctx context.Context, r kv.Reader, productID string) (bool, error) {
	inUse := false
	begin, end := kvutil.PathRange(Keyspace)
	scan := func(ctx context.Context, r kv.Reader, key string, o *gobs.Order) error {
		for _, it := range o.Items {
			if it.ProductID == productID {
				inUse = true
				break
			}
		}
		return nil
	}
	if err := kvutil.Ascend(ctx, r, begin, end, scan); err != nil {
		return false, err
	}
	return inUse, nil
}
