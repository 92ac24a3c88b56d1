// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"testing"
	"time"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/config"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/reserve"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T, db kv.Database) *Server {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:                "test-secret",
		JWTIssuer:                "salesd",
		AccessTokenExpiry:        15 * time.Minute,
		RefreshTokenExpiry:       30 * 24 * time.Hour,
		MercadoPagoWebhookSecret: "whsec-test",
		Currency:                 "ARS",
	}
	s, err := New(db, cfg, nil, nil, &Options{NoReaper: true})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunExpireSweep(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	s := newTestServer(t, db)
	defer s.Close()

	// An empty database sweeps cleanly.
	count, err := s.runExpireSweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("wanted no expired reservations, got %d", count)
	}

	var orderID string
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := catalog.CreateProduct(ctx, rw, &catalog.CreateProductArgs{Name: "shirt", IsActive: true})
		if err != nil {
			return err
		}
		v, err := catalog.CreateVariant(ctx, rw, p.ID, &catalog.CreateVariantArgs{
			SKU:      "S-M",
			Price:    decimal.NewFromInt(100),
			Stock:    5,
			IsActive: true,
		})
		if err != nil {
			return err
		}
		o, err := order.AddItem(ctx, rw, "u1", "ARS", v.ID, 2)
		if err != nil {
			return err
		}
		if _, err := order.ChangeStatus(ctx, rw, "u1", false, o.ID, "submitted"); err != nil {
			return err
		}
		orderID = o.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	age := func() {
		err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
			vs, err := reserve.ListForOrder(ctx, rw, orderID)
			if err != nil {
				return err
			}
			for _, v := range vs {
				v.ExpiresAt = time.Now().UTC().Add(-time.Minute)
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

	// The first sweep reactivates; the second one cancels the order.
	age()
	count, err = s.runExpireSweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("wanted a reactivation, got %d expired", count)
	}
	age()
	count, err = s.runExpireSweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("wanted one expired reservation, got %d", count)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, rd kv.Reader) error {
		o, err := order.Get(ctx, rd, orderID)
		if err != nil {
			return err
		}
		if o.Status != "cancelled" {
			t.Fatalf("wanted a cancelled order, got %q", o.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
