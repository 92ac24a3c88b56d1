// Copyright (c) 2025 BVK Chaitanya

// Package reserve manages stock reservations. Submitted orders hold one
// active reservation per line item with a wall-clock TTL; payment consumes
// them, cancellation releases them and the expiration sweep decides between
// a single reactivation and a cascade cancel.
package reserve

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
	TTL              = 42 * time.Hour
	ReactivationTTL  = 12 * time.Hour
	MaxReactivations = 1
)

const (
	Keyspace = "/reservations"

	activeKeyspace  = "/active-reservations"
	orderKeyspace   = "/order-reservations"
	variantKeyspace = "/variant-reservations"
)

func reservationKey(id string) string {
	return path.Join(Keyspace, id)
}

func activeKey(orderItemID string) string {
	return path.Join(activeKeyspace, orderItemID)
}

func orderIndexKey(orderID, id string) string {
	return path.Join(orderKeyspace, orderID, id)
}

func variantIndexKey(variantID, id string) string {
	return path.Join(variantKeyspace, variantID, id)
}

func Get(ctx context.Context, r kv.Reader, id string) (*gobs.StockReservation, error) {
	v, err := kvutil.Get[gobs.StockReservation](ctx, r, reservationKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("reservation not found")
		}
		return nil, err
	}
	return v, nil
}

func save(ctx context.Context, rw kv.ReadWriter, v *gobs.StockReservation) error {
	return kvutil.Set(ctx, rw, reservationKey(v.ID), v)
}

// Save persists a reservation and keeps the active index consistent with
// its status.
func Save(ctx context.Context, rw kv.ReadWriter, v *gobs.StockReservation) error {
	if v.Status == "active" {
		if err := kvutil.SetString(ctx, rw, activeKey(v.OrderItemID), v.ID); err != nil {
			return err
		}
	} else {
		if err := rw.Delete(ctx, activeKey(v.OrderItemID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return save(ctx, rw, v)
}

// Available returns the stock of a variant not claimed by active,
// non-expired reservations.
func Available(ctx context.Context, r kv.Reader, variantID string, now time.Time) (int64, error) {
	v, err := kvutil.Get[gobs.ProductVariant](ctx, r, path.Join(catalog.VariantKeyspace, variantID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fault.NotFoundf("variant not found")
		}
		return 0, err
	}
	reserved, err := reservedQuantity(ctx, r, variantID, now, "")
	if err != nil {
		return 0, err
	}
	return v.Stock - reserved, nil
}

// reservedQuantity sums active non-expired reservation quantities for a
// variant, optionally skipping reservations of one order.
func reservedQuantity(ctx context.Context, r kv.Reader, variantID string, now time.Time, skipOrderID string) (int64, error) {
	var total int64
	begin, end := kvutil.PathRange(path.Join(variantKeyspace, variantID))
	sum := func(ctx context.Context, key, id string) error {
		v, err := Get(ctx, r, id)
		if err != nil {
			return err
		}
		if v.Status != "active" || !v.ExpiresAt.After(now) {
			return nil
		}
		if len(skipOrderID) != 0 && v.OrderID == skipOrderID {
			return nil
		}
		total += v.Quantity
		return nil
	}
	if err := kvutil.AscendStrings(ctx, r, begin, end, sum); err != nil {
		return 0, err
	}
	return total, nil
}

// Reserve creates one active reservation per order item that lacks one.
// Availability of every item is validated before anything is written, so the
// call is all-or-nothing. Calling it again for a fully reserved order is a
// no-op returning the existing reservations.
func Reserve(ctx context.Context, rw kv.ReadWriter, order *gobs.Order, now time.Time) ([]*gobs.StockReservation, error) {
	if len(order.Items) == 0 {
		return nil, fault.Validationf("order has no items")
	}

	var existing []*gobs.StockReservation
	var missing []*gobs.OrderItem
	for _, item := range order.Items {
		id, err := kvutil.GetString[string](ctx, rw, activeKey(item.ID))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			missing = append(missing, item)
			continue
		}
		v, err := Get(ctx, rw, id)
		if err != nil {
			return nil, err
		}
		existing = append(existing, v)
	}
	if len(missing) == 0 {
		return existing, nil
	}

	for _, item := range missing {
		available, err := Available(ctx, rw, item.VariantID, now)
		if err != nil {
			return nil, err
		}
		if available < item.Quantity {
			return nil, fault.Conflictf("insufficient stock for variant %s", item.VariantID)
		}
	}

	for _, item := range missing {
		v := &gobs.StockReservation{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			OrderItemID: item.ID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			Status:      "active",
			ExpiresAt:   now.Add(TTL),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := Save(ctx, rw, v); err != nil {
			return nil, err
		}
		if err := kvutil.SetString(ctx, rw, orderIndexKey(order.ID, v.ID), v.ID); err != nil {
			return nil, err
		}
		if err := kvutil.SetString(ctx, rw, variantIndexKey(item.VariantID, v.ID), v.ID); err != nil {
			return nil, err
		}
		existing = append(existing, v)
	}
	return existing, nil
}

// ListForOrder returns all reservations of an order, in id order.
func ListForOrder(ctx context.Context, r kv.Reader, orderID string) ([]*gobs.StockReservation, error) {
	var vs []*gobs.StockReservation
	begin, end := kvutil.PathRange(path.Join(orderKeyspace, orderID))
	collect := func(ctx context.Context, key, id string) error {
		v, err := Get(ctx, r, id)
		if err != nil {
			return err
		}
		vs = append(vs, v)
		return nil
	}
	if err := kvutil.AscendStrings(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	return vs, nil
}

// ActiveForOrder returns an order's active, non-expired reservations.
func ActiveForOrder(ctx context.Context, r kv.Reader, orderID string, now time.Time) ([]*gobs.StockReservation, error) {
	all, err := ListForOrder(ctx, r, orderID)
	if err != nil {
		return nil, err
	}
	var active []*gobs.StockReservation
	for _, v := range all {
		if v.Status == "active" && v.ExpiresAt.After(now) {
			active = append(active, v)
		}
	}
	return active, nil
}

// Consume decrements variant stock for each active reservation of a paid
// order and marks them consumed. Consuming an already-paid order with only
// consumed reservations is a no-op.
func Consume(ctx context.Context, rw kv.ReadWriter, order *gobs.Order, now time.Time) error {
	if order.Status != "submitted" && order.Status != "paid" {
		return fault.Validationf("order is not payable in status %q", order.Status)
	}

	all, err := ListForOrder(ctx, rw, order.ID)
	if err != nil {
		return err
	}
	var active []*gobs.StockReservation
	consumed := 0
	for _, v := range all {
		switch v.Status {
		case "active":
			active = append(active, v)
		case "consumed":
			consumed++
		}
	}
	if len(active) == 0 {
		if order.Status == "paid" && consumed > 0 && consumed == len(all) {
			return nil
		}
		return fault.Validationf("no active reservations for order")
	}

	for _, v := range active {
		if _, err := catalog.TakeStock(ctx, rw, v.VariantID, v.Quantity); err != nil {
			return err
		}
		v.Status = "consumed"
		v.ConsumedAt = now
		v.ReleaseReason = "order_paid"
		v.UpdatedAt = now
		if err := Save(ctx, rw, v); err != nil {
			return err
		}
	}
	return nil
}

// Release marks all active reservations of an order released with the given
// reason and returns how many were released.
func Release(ctx context.Context, rw kv.ReadWriter, orderID, reason string, now time.Time) (int, error) {
	all, err := ListForOrder(ctx, rw, orderID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, v := range all {
		if v.Status != "active" {
			continue
		}
		v.Status = "released"
		v.ReleasedAt = now
		v.ReleaseReason = reason
		v.UpdatedAt = now
		if err := Save(ctx, rw, v); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// Expiring returns active reservations with expires_at at or before now,
// grouped by order id.
func Expiring(ctx context.Context, r kv.Reader, now time.Time) (map[string][]*gobs.StockReservation, error) {
	groups := make(map[string][]*gobs.StockReservation)
	begin, end := kvutil.PathRange(activeKeyspace)
	collect := func(ctx context.Context, key, id string) error {
		v, err := Get(ctx, r, id)
		if err != nil {
			return err
		}
		if v.Status != "active" || v.ExpiresAt.After(now) {
			return nil
		}
		groups[v.OrderID] = append(groups[v.OrderID], v)
		return nil
	}
	if err := kvutil.AscendStrings(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	return groups, nil
}

// MarkExpired stamps a reservation expired and removes it from the active
// index.
func MarkExpired(ctx context.Context, rw kv.ReadWriter, v *gobs.StockReservation, now time.Time) error {
	v.Status = "expired"
	v.ReleasedAt = now
	v.ReleaseReason = "reservation_expired"
	v.UpdatedAt = now
	return Save(ctx, rw, v)
}

// Reactivate reverses an expiration under the shorter reactivation TTL.
func Reactivate(ctx context.Context, rw kv.ReadWriter, v *gobs.StockReservation, now time.Time) error {
	v.Status = "active"
	v.ExpiresAt = now.Add(ReactivationTTL)
	v.ReactivationCount++
	v.ConsumedAt = time.Time{}
	v.ReleasedAt = time.Time{}
	v.ReleaseReason = ""
	v.UpdatedAt = now
	return Save(ctx, rw, v)
}

// ReservedExcept sums active non-expired reservation quantities of a variant
// held by other orders. Used when revalidating availability during
// reactivation, where the order's own expiring reservations must not count
// against it.
func ReservedExcept(ctx context.Context, r kv.Reader, variantID, orderID string, now time.Time) (int64, error) {
	return reservedQuantity(ctx, r, variantID, now, orderID)
}
