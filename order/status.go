// Copyright (c) 2025 BVK Chaitanya

package order

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvk/salesd/reserve"
	"github.com/bvkgo/kv"
)

// CanTransition reports whether the state machine admits the transition.
// Terminal states only admit themselves and draft is never re-entered.
func CanTransition(from, to string) bool {
	switch from {
	case "draft":
		return to == "submitted" || to == "cancelled"
	case "submitted":
		return to == "paid" || to == "cancelled"
	case "paid":
		return to == "paid"
	case "cancelled":
		return to == "cancelled"
	}
	return false
}

// Submit moves a draft to submitted: one forced repricing, pricing freeze
// and stock reservation for every line. Empty drafts cannot be submitted.
func Submit(ctx context.Context, rw kv.ReadWriter, o *gobs.Order, now time.Time) error {
	if !CanTransition(o.Status, "submitted") || o.Status != "draft" {
		return fault.Validationf("invalid status transition")
	}
	if len(o.Items) == 0 {
		return fault.Validationf("cannot submit an empty order")
	}

	if err := Reprice(ctx, rw, o, true, now); err != nil {
		return err
	}
	o.Status = "submitted"
	o.PricingFrozen = true
	o.PricingFrozenAt = now
	o.SubmittedAt = now

	if err := clearDraft(ctx, rw, o.UserID, o.ID); err != nil {
		return err
	}
	if err := Save(ctx, rw, o); err != nil {
		return err
	}
	if _, err := reserve.Reserve(ctx, rw, o, now); err != nil {
		return err
	}
	return nil
}

// Cancel moves a draft or submitted order to cancelled and releases its
// active reservations.
func Cancel(ctx context.Context, rw kv.ReadWriter, o *gobs.Order, now time.Time) error {
	if o.Status == "cancelled" {
		return nil
	}
	if !CanTransition(o.Status, "cancelled") {
		return fault.Validationf("invalid status transition")
	}
	o.Status = "cancelled"
	o.CancelledAt = now

	if err := clearDraft(ctx, rw, o.UserID, o.ID); err != nil {
		return err
	}
	if err := Save(ctx, rw, o); err != nil {
		return err
	}
	if _, err := reserve.Release(ctx, rw, o.ID, "order_cancelled", now); err != nil {
		return err
	}
	return nil
}

// CancelForExpiration cancels a submitted order whose reservations expired
// beyond reactivation. The reservations are already marked expired by the
// sweep, so nothing is released here.
func CancelForExpiration(ctx context.Context, rw kv.ReadWriter, o *gobs.Order, now time.Time) error {
	if o.Status == "cancelled" {
		return nil
	}
	o.Status = "cancelled"
	if o.CancelledAt.IsZero() {
		o.CancelledAt = now
	}
	return Save(ctx, rw, o)
}

// MarkPaid stamps a submitted order paid. Payment bookkeeping and
// reservation consumption are the caller's responsibility.
func MarkPaid(ctx context.Context, rw kv.ReadWriter, o *gobs.Order, now time.Time) error {
	if o.Status == "paid" {
		return nil
	}
	if !CanTransition(o.Status, "paid") {
		return fault.Validationf("invalid status transition")
	}
	o.Status = "paid"
	o.PaidAt = now
	return Save(ctx, rw, o)
}

// ChangeStatus applies a user-driven transition to submitted or cancelled.
// Transitions to paid go through the payment package instead.
func ChangeStatus(ctx context.Context, rw kv.ReadWriter, userID string, isAdmin bool, orderID, newStatus string) (*gobs.Order, error) {
	o, err := GetOwned(ctx, rw, orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch newStatus {
	case "submitted":
		if err := Submit(ctx, rw, o, now); err != nil {
			return nil, err
		}
	case "cancelled":
		if err := Cancel(ctx, rw, o, now); err != nil {
			return nil, err
		}
	default:
		return nil, fault.Validationf("invalid status transition")
	}
	return o, nil
}

func clearDraft(ctx context.Context, rw kv.ReadWriter, userID, orderID string) error {
	id, err := kvutil.GetString[string](ctx, rw, draftKey(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if id != orderID {
		return nil
	}
	if err := rw.Delete(ctx, draftKey(userID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
