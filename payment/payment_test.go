// Copyright (c) 2025 BVK Chaitanya

package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

type fakeProvider struct {
	preferences int
	lookups     int

	payment *ProviderPayment
}

func (f *fakeProvider) CreatePreference(ctx context.Context, req *PreferenceRequest, idempotencyKey string) (*Preference, error) {
	f.preferences++
	return &Preference{
		ID:               "pref-1",
		InitPoint:        "https://mp.example/init",
		SandboxInitPoint: "https://mp.example/sandbox",
	}, nil
}

func (f *fakeProvider) GetPayment(ctx context.Context, id string) (*ProviderPayment, error) {
	f.lookups++
	if f.payment == nil {
		return nil, fault.NotFoundf("payment not found")
	}
	return f.payment, nil
}

func TestCreateBankTransfer(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	pr := NewProcessor(nil, nil)

	o, _ := submitOrder(t, db, "u1", 100, 5, 2)

	var p *gobs.Payment
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		p, err = pr.Create(ctx, rw, &CreateArgs{
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

	if p.Status != "pending" || p.Method != "bank_transfer" {
		t.Fatalf("wanted a pending bank transfer, got %+v", p)
	}
	if !p.Amount.Equal(decimal.NewFromInt(200)) || p.Currency != "ARS" {
		t.Fatalf("wanted 200 ARS, got %v %s", p.Amount, p.Currency)
	}
	if p.ExpiresAt.IsZero() {
		t.Fatal("wanted an expiry on the pending payment")
	}
	if !strings.Contains(p.ProviderPayload, "ORDER-"+o.ID+"-PAY-"+p.ID) {
		t.Fatalf("wanted transfer instructions in the payload, got %q", p.ProviderPayload)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{}
	pr := NewProcessor(provider, nil)

	o, _ := submitOrder(t, db, "u1", 100, 5, 2)

	create := func(method, key string) (*gobs.Payment, error) {
		var p *gobs.Payment
		err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
			var err error
			p, err = pr.Create(ctx, rw, &CreateArgs{
				OrderID:        o.ID,
				Method:         method,
				UserID:         "u1",
				IdempotencyKey: key,
			})
			return err
		})
		return p, err
	}

	first, err := create("mercadopago", "key-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := create("mercadopago", "key-1")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("wanted the same payment, got %q and %q", first.ID, second.ID)
	}
	if provider.preferences != 1 {
		t.Fatalf("wanted one preference call, got %d", provider.preferences)
	}

	// The same key with another method is a conflict.
	if _, err := create("bank_transfer", "key-1"); !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("wanted conflict, got %v", err)
	}
}

func TestCreateSingleActivePending(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	pr := NewProcessor(nil, nil)

	o, _ := submitOrder(t, db, "u1", 100, 5, 2)

	create := func(key, currency string) (*gobs.Payment, error) {
		var p *gobs.Payment
		err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
			var err error
			p, err = pr.Create(ctx, rw, &CreateArgs{
				OrderID:        o.ID,
				Method:         "bank_transfer",
				UserID:         "u1",
				IdempotencyKey: key,
				Currency:       currency,
			})
			return err
		})
		return p, err
	}

	first, err := create("key-1", "")
	if err != nil {
		t.Fatal(err)
	}

	// A second key for the same order and method resolves to the live
	// pending payment instead of a duplicate.
	second, err := create("key-2", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("wanted the live pending payment, got %q and %q", first.ID, second.ID)
	}

	// Incompatible terms against the live pending payment are a conflict.
	if _, err := create("key-3", "USD"); !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("wanted conflict, got %v", err)
	}
}

func TestCreateMercadoPagoPreference(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{}
	pr := NewProcessor(provider, &ProcessorOptions{Env: "sandbox"})

	o, _ := submitOrder(t, db, "u1", 100, 5, 2)

	var p *gobs.Payment
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		p, err = pr.Create(ctx, rw, &CreateArgs{
			OrderID:        o.ID,
			Method:         "mercadopago",
			UserID:         "u1",
			IdempotencyKey: "key-1",
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	if p.ProviderPreferenceID != "pref-1" || p.ProviderStatus != "preference_created" {
		t.Fatalf("wanted preference pref-1, got %+v", p)
	}
	want := "mp-order-" + o.ID + "-pay-" + p.ID
	if p.ExternalReference != want {
		t.Fatalf("wanted external reference %q, got %q", want, p.ExternalReference)
	}
	// The sandbox environment picks the sandbox init point as checkout url.
	if !strings.Contains(p.ProviderPayload, "https://mp.example/sandbox") {
		t.Fatalf("wanted the sandbox checkout url in the payload, got %q", p.ProviderPayload)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		found, err := FindByExternalReference(ctx, r, want)
		if err != nil {
			return err
		}
		if found.ID != p.ID {
			t.Fatalf("wanted payment %q by external reference, got %q", p.ID, found.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateChecks(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	pr := NewProcessor(nil, nil)

	o, _ := submitOrder(t, db, "u1", 100, 5, 2)

	create := func(args *CreateArgs) error {
		return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
			_, err := pr.Create(ctx, rw, args)
			return err
		})
	}

	err := create(&CreateArgs{OrderID: o.ID, Method: "cash", UserID: "u1", IdempotencyKey: "k"})
	if !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for the method, got %v", err)
	}
	err = create(&CreateArgs{OrderID: o.ID, Method: "bank_transfer", UserID: "u1"})
	if !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for the missing key, got %v", err)
	}
	err = create(&CreateArgs{OrderID: o.ID, Method: "bank_transfer", UserID: "u1", IdempotencyKey: "k", ExpiresInMinutes: 2000})
	if !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for the expiry, got %v", err)
	}
	err = create(&CreateArgs{OrderID: o.ID, Method: "bank_transfer", UserID: "u2", IdempotencyKey: "k"})
	if !fault.IsKind(err, fault.NotFound) {
		t.Fatalf("wanted not-found for a foreign order, got %v", err)
	}

	// Draft orders are not payable.
	var draftID string
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		draft, _, err := order.GetOrCreateDraft(ctx, rw, "u3", "ARS")
		if err != nil {
			return err
		}
		draftID = draft.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	err = create(&CreateArgs{OrderID: draftID, Method: "bank_transfer", UserID: "u3", IdempotencyKey: "k2"})
	if !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for a draft order, got %v", err)
	}
}
