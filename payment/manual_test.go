// Copyright (c) 2025 BVK Chaitanya

package payment

import (
	"context"
	"testing"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

// submitOrder seeds a variant with the given price and stock, builds a
// draft for the user with one line of the given quantity and submits it.
func submitOrder(t *testing.T, db kv.Database, userID string, price, stock, qty int64) (*gobs.Order, *gobs.ProductVariant) {
	t.Helper()
	ctx := context.Background()
	var o *gobs.Order
	var variant *gobs.ProductVariant
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := catalog.CreateProduct(ctx, rw, &catalog.CreateProductArgs{Name: "widget", IsActive: true})
		if err != nil {
			return err
		}
		variant, err = catalog.CreateVariant(ctx, rw, p.ID, &catalog.CreateVariantArgs{
			SKU:      "SKU-" + p.ID,
			Price:    decimal.NewFromInt(price),
			Stock:    stock,
			IsActive: true,
		})
		if err != nil {
			return err
		}
		if o, err = order.AddItem(ctx, rw, userID, "ARS", variant.ID, qty); err != nil {
			return err
		}
		o, err = order.ChangeStatus(ctx, rw, userID, false, o.ID, "submitted")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return o, variant
}

func TestConfirmManual(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	o, variant := submitOrder(t, db, "u1", 100, 5, 2)

	var p *gobs.Payment
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		p, o, err = ConfirmManual(ctx, rw, o.ID, "u1", false, "TX1", decimal.NewFromInt(200))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	if o.Status != "paid" || o.PaidAt.IsZero() {
		t.Fatalf("wanted a paid order, got %+v", o)
	}
	if p.Status != "paid" || p.Method != "bank_transfer" {
		t.Fatalf("wanted a paid bank transfer, got %+v", p)
	}
	if p.PaymentRef != "TX1" || p.ProviderStatus != "manual_confirmed" {
		t.Fatalf("wanted TX1/manual_confirmed, got %q/%q", p.PaymentRef, p.ProviderStatus)
	}
	if !p.Amount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("wanted amount 200, got %v", p.Amount)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		v, err := catalog.GetVariant(ctx, r, variant.ID)
		if err != nil {
			return err
		}
		if v.Stock != 3 {
			t.Fatalf("wanted stock 3 after consumption, got %d", v.Stock)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Re-confirming with the same reference and amount returns the
	// recorded payment.
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		again, _, err := ConfirmManual(ctx, rw, o.ID, "u1", false, "TX1", decimal.NewFromInt(200))
		if err != nil {
			return err
		}
		if again.ID != p.ID {
			t.Fatalf("wanted payment %q, got %q", p.ID, again.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// A different reference on a paid order is a conflict.
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		_, _, err := ConfirmManual(ctx, rw, o.ID, "u1", false, "TX2", decimal.NewFromInt(200))
		return err
	})
	if !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("wanted conflict, got %v", err)
	}
}

func TestConfirmManualChecks(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	o, _ := submitOrder(t, db, "u1", 100, 5, 2)

	confirm := func(orderID, userID, ref string, amount int64) error {
		return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
			_, _, err := ConfirmManual(ctx, rw, orderID, userID, false, ref, decimal.NewFromInt(amount))
			return err
		})
	}

	if err := confirm(o.ID, "u1", "", 200); !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for an empty ref, got %v", err)
	}
	if err := confirm(o.ID, "u1", "TX1", 150); !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for a wrong amount, got %v", err)
	}
	if err := confirm(o.ID, "u2", "TX1", 200); !fault.IsKind(err, fault.NotFound) {
		t.Fatalf("wanted not-found for a foreign order, got %v", err)
	}
	if err := confirm("no-such-order", "u1", "TX1", 200); !fault.IsKind(err, fault.NotFound) {
		t.Fatalf("wanted not-found, got %v", err)
	}
}
