// Copyright (c) 2025 BVK Chaitanya

package payment

import (
	"context"
	"testing"
	"time"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/reserve"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
)

// ageReservations rewinds the expiry of every reservation of the order so
// that the next sweep picks them up.
func ageReservations(t *testing.T, db kv.Database, orderID string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		vs, err := reserve.ListForOrder(ctx, rw, orderID)
		if err != nil {
			return err
		}
		for _, v := range vs {
			v.ExpiresAt = expiresAt
			if err := reserve.Save(ctx, rw, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestExpireReactivatesOnce(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	now := time.Now().UTC()

	o, _ := submitOrder(t, db, "u1", 100, 5, 2)
	ageReservations(t, db, o.ID, now.Add(-time.Minute))

	var expired int
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		expired, err = ExpireReservations(ctx, rw, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if expired != 0 {
		t.Fatalf("wanted no expired reservations, got %d", expired)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		vs, err := reserve.ListForOrder(ctx, r, o.ID)
		if err != nil {
			return err
		}
		if len(vs) != 1 {
			t.Fatalf("wanted one reservation, got %d", len(vs))
		}
		v := vs[0]
		if v.Status != "active" || v.ReactivationCount != 1 {
			t.Fatalf("wanted an active reservation with one reactivation, got %+v", v)
		}
		if d := v.ExpiresAt.Sub(now); d < reserve.ReactivationTTL-time.Minute || d > reserve.ReactivationTTL+time.Minute {
			t.Fatalf("wanted expiry about now+%v, got %v", reserve.ReactivationTTL, d)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// A second expiry is beyond the reactivation limit and cancels the
	// order.
	ageReservations(t, db, o.ID, now.Add(-time.Minute))
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		expired, err = ExpireReservations(ctx, rw, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if expired != 1 {
		t.Fatalf("wanted one expired reservation, got %d", expired)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		got, err := order.Get(ctx, r, o.ID)
		if err != nil {
			return err
		}
		if got.Status != "cancelled" || got.CancelledAt.IsZero() {
			t.Fatalf("wanted a cancelled order, got %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestExpireCascadesToCancel(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	now := time.Now().UTC()
	pr := NewProcessor(nil, nil)

	o, variant := submitOrder(t, db, "u1", 100, 2, 2)

	// A live pending payment that the cascade must cancel.
	var pending *gobs.Payment
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		pending, err = pr.Create(ctx, rw, &CreateArgs{
			OrderID:        o.ID,
			Method:         "bank_transfer",
			UserID:         "u1",
			IdempotencyKey: "key-1",
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	// Stock shrinks below the reserved quantity, so reactivation cannot
	// fit anymore.
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		_, err := catalog.TakeStock(ctx, rw, variant.ID, 1)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	ageReservations(t, db, o.ID, now.Add(-time.Minute))

	var expired int
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		expired, err = ExpireReservations(ctx, rw, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if expired != 1 {
		t.Fatalf("wanted one expired reservation, got %d", expired)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		vs, err := reserve.ListForOrder(ctx, r, o.ID)
		if err != nil {
			return err
		}
		if vs[0].Status != "expired" || vs[0].ReleaseReason != "reservation_expired" {
			t.Fatalf("wanted an expired reservation, got %+v", vs[0])
		}
		got, err := order.Get(ctx, r, o.ID)
		if err != nil {
			return err
		}
		if got.Status != "cancelled" {
			t.Fatalf("wanted a cancelled order, got %q", got.Status)
		}
		p, err := Get(ctx, r, pending.ID)
		if err != nil {
			return err
		}
		if p.Status != "cancelled" {
			t.Fatalf("wanted a cancelled payment, got %q", p.Status)
		}
		if p.ProviderStatus != "order_cancelled_reservation_expired" {
			t.Fatalf("wanted provider status order_cancelled_reservation_expired, got %q", p.ProviderStatus)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestExpireLeavesOtherOrdersAlone(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	now := time.Now().UTC()

	o, _ := submitOrder(t, db, "u1", 100, 5, 1)
	other, _ := submitOrder(t, db, "u2", 100, 5, 1)
	ageReservations(t, db, o.ID, now.Add(-time.Minute))

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		_, err := ExpireReservations(ctx, rw, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		active, err := reserve.ActiveForOrder(ctx, r, other.ID, now)
		if err != nil {
			return err
		}
		if len(active) != 1 || active[0].ReactivationCount != 0 {
			t.Fatalf("wanted the other order untouched, got %+v", active)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
