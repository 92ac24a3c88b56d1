// Copyright (c) 2025 BVK Chaitanya

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/payment"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

const testSecret = "whsec-test"

type fakeProvider struct {
	payment *payment.ProviderPayment
	err     error

	lookups int
}

func (f *fakeProvider) CreatePreference(ctx context.Context, req *payment.PreferenceRequest, idempotencyKey string) (*payment.Preference, error) {
	return &payment.Preference{
		ID:               "pref-1",
		InitPoint:        "https://mp.example/init",
		SandboxInitPoint: "https://mp.example/sandbox",
	}, nil
}

func (f *fakeProvider) GetPayment(ctx context.Context, id string) (*payment.ProviderPayment, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

// setupPendingPayment seeds a submitted order with one 2x100 line and a
// pending mercadopago payment on it.
func setupPendingPayment(t *testing.T, db kv.Database, pr *payment.Processor) (*gobs.Payment, *gobs.ProductVariant) {
	t.Helper()
	ctx := context.Background()
	var p *gobs.Payment
	var variant *gobs.ProductVariant
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		prod, err := catalog.CreateProduct(ctx, rw, &catalog.CreateProductArgs{Name: "widget", IsActive: true})
		if err != nil {
			return err
		}
		variant, err = catalog.CreateVariant(ctx, rw, prod.ID, &catalog.CreateVariantArgs{
			SKU:      "SKU-" + prod.ID,
			Price:    decimal.NewFromInt(100),
			Stock:    5,
			IsActive: true,
		})
		if err != nil {
			return err
		}
		o, err := order.AddItem(ctx, rw, "u1", "ARS", variant.ID, 2)
		if err != nil {
			return err
		}
		if o, err = order.ChangeStatus(ctx, rw, "u1", false, o.ID, "submitted"); err != nil {
			return err
		}
		p, err = pr.Create(ctx, rw, &payment.CreateArgs{
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
	return p, variant
}

func notification(eventID, dataID string) (body []byte, header string) {
	body = []byte(fmt.Sprintf(`{"id": %q, "type": "payment", "action": "payment.updated", "data": {"id": %q}}`, eventID, dataID))
	ts := "1700000000"
	header = fmt.Sprintf("ts=%s,v1=%s", ts, signManifest(testSecret, dataID, "req-1", ts))
	return body, header
}

func TestProcessApprovedPayment(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{}
	pr := payment.NewProcessor(provider, nil)
	rc := NewReconciler(db, testSecret, provider, pr)

	p, variant := setupPendingPayment(t, db, pr)
	provider.payment = &payment.ProviderPayment{
		ID:                json.Number("555"),
		Status:            "approved",
		ExternalReference: p.ExternalReference,
		CurrencyID:        "ars",
		TransactionAmount: decimal.NewFromInt(200),
	}

	body, header := notification("evt-1", "555")
	result, err := rc.Process(ctx, header, "req-1", body)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Processed {
		t.Fatalf("wanted a processed delivery, got %+v", result)
	}
	if result.Payment.Status != "paid" || result.Payment.PaidAt.IsZero() {
		t.Fatalf("wanted a paid payment, got %+v", result.Payment)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		o, err := order.Get(ctx, r, p.OrderID)
		if err != nil {
			return err
		}
		if o.Status != "paid" {
			t.Fatalf("wanted a paid order, got %q", o.Status)
		}
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

	// The identical delivery again is suppressed by the event log.
	result, err = rc.Process(ctx, header, "req-1", body)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed || result.Reason != "duplicate webhook event" {
		t.Fatalf("wanted a duplicate no-op, got %+v", result)
	}
}

func TestProcessNumericDataID(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{}
	pr := payment.NewProcessor(provider, nil)
	rc := NewReconciler(db, testSecret, provider, pr)

	p, _ := setupPendingPayment(t, db, pr)
	provider.payment = &payment.ProviderPayment{
		ID:                json.Number("1000000"),
		Status:            "approved",
		ExternalReference: p.ExternalReference,
		CurrencyID:        "ars",
		TransactionAmount: decimal.NewFromInt(200),
	}

	// Numeric json ids must verify against the manifest built from their
	// decimal string form, not a float rendering like "1e+06".
	body := []byte(`{"id": 9000001, "type": "payment", "action": "payment.updated", "data": {"id": 1000000}}`)
	ts := "1700000000"
	header := fmt.Sprintf("ts=%s,v1=%s", ts, signManifest(testSecret, "1000000", "req-1", ts))

	result, err := rc.Process(ctx, header, "req-1", body)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Processed || result.Payment.Status != "paid" {
		t.Fatalf("wanted a processed paid payment, got %+v", result)
	}
	if provider.lookups != 1 {
		t.Fatalf("wanted one provider lookup, got %d", provider.lookups)
	}

	// The dedup key comes from the numeric event id as well.
	result, err = rc.Process(ctx, header, "req-1", body)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed || result.Reason != "duplicate webhook event" {
		t.Fatalf("wanted a duplicate no-op, got %+v", result)
	}
}

func TestProcessBadSignature(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{}
	pr := payment.NewProcessor(provider, nil)
	rc := NewReconciler(db, testSecret, provider, pr)

	body, _ := notification("evt-1", "555")
	_, err := rc.Process(ctx, "ts=1700000000,v1=deadbeef", "req-1", body)
	if !fault.IsKind(err, fault.Unauthorized) {
		t.Fatalf("wanted unauthorized, got %v", err)
	}
	if provider.lookups != 0 {
		t.Fatalf("wanted no provider lookups, got %d", provider.lookups)
	}
}

func TestProcessSoftNoOps(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{}
	pr := payment.NewProcessor(provider, nil)
	rc := NewReconciler(db, testSecret, provider, pr)

	tests := []struct {
		name string
		body string
	}{
		{"not-an-object", `[1, 2, 3]`},
		{"foreign-topic", `{"type": "merchant_order", "data": {"id": "1"}}`},
		{"missing-data-id", `{"type": "payment", "data": {}}`},
	}
	for _, test := range tests {
		result, err := rc.Process(ctx, "", "req-1", []byte(test.body))
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if result.Processed {
			t.Errorf("%s: wanted a no-op, got processed", test.name)
		}
	}
	if provider.lookups != 0 {
		t.Fatalf("wanted no provider lookups, got %d", provider.lookups)
	}
}

func TestProcessLookupFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{err: fault.New(fault.ProviderUnavailable, nil, "mp is down")}
	pr := payment.NewProcessor(provider, nil)
	rc := NewReconciler(db, testSecret, provider, pr)

	p, _ := setupPendingPayment(t, db, pr)

	body, header := notification("evt-1", "555")
	result, err := rc.Process(ctx, header, "req-1", body)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed || result.Reason != "payment lookup failed" {
		t.Fatalf("wanted a lookup-failed no-op, got %+v", result)
	}

	// The failed event is revived, so the provider's recovery lets the
	// same delivery go through.
	provider.err = nil
	provider.payment = &payment.ProviderPayment{
		ID:                json.Number("555"),
		Status:            "approved",
		ExternalReference: p.ExternalReference,
		CurrencyID:        "ARS",
		TransactionAmount: decimal.NewFromInt(200),
	}
	result, err = rc.Process(ctx, header, "req-1", body)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Processed {
		t.Fatalf("wanted a processed retry, got %+v", result)
	}
}

func TestProcessUnknownReference(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	provider := &fakeProvider{
		payment: &payment.ProviderPayment{
			ID:                json.Number("555"),
			Status:            "approved",
			ExternalReference: "mp-order-x-pay-y",
			CurrencyID:        "ARS",
			TransactionAmount: decimal.NewFromInt(200),
		},
	}
	pr := payment.NewProcessor(provider, nil)
	rc := NewReconciler(db, testSecret, provider, pr)

	body, header := notification("evt-1", "555")
	result, err := rc.Process(ctx, header, "req-1", body)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed || result.Reason != "payment not found" {
		t.Fatalf("wanted a payment-not-found no-op, got %+v", result)
	}
}

func TestNormalize(t *testing.T) {
	base := func(status string) *payment.ProviderPayment {
		return &payment.ProviderPayment{
			ID:                json.Number("1"),
			Status:            status,
			ExternalReference: "ref-1",
			CurrencyID:        "ars",
			TransactionAmount: decimal.NewFromInt(100),
		}
	}

	tests := []struct {
		status string
		target string
	}{
		{"approved", "paid"},
		{"accredited", "paid"},
		{"pending", "pending"},
		{"in_process", "pending"},
		{"in_mediation", "pending"},
		{"authorized", "pending"},
		{"rejected", "cancelled"},
		{"cancelled", "cancelled"},
		{"canceled", "cancelled"},
		{"expired", "expired"},
		{"APPROVED", "paid"},
	}
	for _, test := range tests {
		ns, err := Normalize(base(test.status))
		if err != nil {
			t.Fatalf("%s: %v", test.status, err)
		}
		if ns.Target != test.target {
			t.Errorf("%s: wanted target %q, got %q", test.status, test.target, ns.Target)
		}
		if ns.Currency != "ARS" {
			t.Errorf("%s: wanted currency ARS, got %q", test.status, ns.Currency)
		}
	}

	if _, err := Normalize(base("charged_back")); !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for an unsupported status, got %v", err)
	}

	missing := base("approved")
	missing.ExternalReference = ""
	if _, err := Normalize(missing); !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for a missing reference, got %v", err)
	}
	blank := base("approved")
	blank.ID = json.Number("")
	if _, err := Normalize(blank); !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for a missing id, got %v", err)
	}
	nostatus := base("  ")
	if _, err := Normalize(nostatus); !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error for a missing status, got %v", err)
	}
}
