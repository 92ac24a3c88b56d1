// Copyright (c) 2025 BVK Chaitanya

package discount

import (
	"testing"
	"time"

	"github.com/bvk/salesd/gobs"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestValidAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		discount *gobs.Discount
		want     bool
	}{
		{"inactive", &gobs.Discount{IsActive: false}, false},
		{"open-window", &gobs.Discount{IsActive: true}, true},
		{"not-started", &gobs.Discount{IsActive: true, StartsAt: now.Add(time.Hour)}, false},
		{"already-ended", &gobs.Discount{IsActive: true, EndsAt: now.Add(-time.Hour)}, false},
		{"inside-window", &gobs.Discount{IsActive: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}, true},
		{"starts-now", &gobs.Discount{IsActive: true, StartsAt: now}, true},
		{"ends-now", &gobs.Discount{IsActive: true, EndsAt: now}, true},
	}
	for _, test := range tests {
		if got := ValidAt(test.discount, now); got != test.want {
			t.Errorf("%s: wanted %v, got %v", test.name, test.want, got)
		}
	}
}

func TestAppliesTo(t *testing.T) {
	tests := []struct {
		name     string
		discount *gobs.Discount
		want     bool
	}{
		{"all", &gobs.Discount{Scope: "all"}, true},
		{"category-match", &gobs.Discount{Scope: "category", ScopeValue: "toys"}, true},
		{"category-other", &gobs.Discount{Scope: "category", ScopeValue: "food"}, false},
		{"product-match", &gobs.Discount{Scope: "product", ScopeValue: "p1"}, true},
		{"product-other", &gobs.Discount{Scope: "product", ScopeValue: "p2"}, false},
		{"list-member", &gobs.Discount{Scope: "product_list", ProductIDs: []string{"p0", "p1"}}, true},
		{"list-nonmember", &gobs.Discount{Scope: "product_list", ProductIDs: []string{"p2"}}, false},
		{"unknown-scope", &gobs.Discount{Scope: "bogus"}, false},
	}
	for _, test := range tests {
		if got := AppliesTo(test.discount, "p1", "toys"); got != test.want {
			t.Errorf("%s: wanted %v, got %v", test.name, test.want, got)
		}
	}
}

func TestAppliesToEmptyCategory(t *testing.T) {
	dd := &gobs.Discount{Scope: "category", ScopeValue: "toys"}
	if AppliesTo(dd, "p1", "") {
		t.Fatal("category discount must not match a product without category")
	}
}

func TestLineDiscount(t *testing.T) {
	tests := []struct {
		name     string
		discount *gobs.Discount
		unit     decimal.Decimal
		want     decimal.Decimal
	}{
		{"percent", &gobs.Discount{Type: "percent", Value: d(10)}, d(100), d(10)},
		{"percent-full", &gobs.Discount{Type: "percent", Value: d(100)}, d(80), d(80)},
		{"fixed", &gobs.Discount{Type: "fixed", Value: d(30)}, d(100), d(30)},
		{"fixed-clamped", &gobs.Discount{Type: "fixed", Value: d(150)}, d(100), d(100)},
		{"unknown-type", &gobs.Discount{Type: "bogus", Value: d(10)}, d(100), d(0)},
	}
	for _, test := range tests {
		if got := LineDiscount(test.discount, test.unit); !got.Equal(test.want) {
			t.Errorf("%s: wanted %v, got %v", test.name, test.want, got)
		}
	}
}

func TestBestFor(t *testing.T) {
	now := time.Now().UTC()
	discounts := []*gobs.Discount{
		{ID: "1", Type: "percent", Scope: "all", Value: d(10), IsActive: true},
		{ID: "2", Type: "fixed", Scope: "all", Value: d(25), IsActive: true},
		{ID: "3", Type: "percent", Scope: "all", Value: d(25), IsActive: true},
		{ID: "4", Type: "fixed", Scope: "all", Value: d(30), IsActive: false},
	}

	// Unit price 100: fixed 25 and percent 25 tie at 25; the lowest id wins.
	best := BestFor(discounts, "p1", "", d(100), now)
	if best == nil || best.ID != "2" {
		t.Fatalf("wanted discount 2, got %+v", best)
	}

	// Unit price 200: percent 25 yields 50 and beats the fixed 25.
	best = BestFor(discounts, "p1", "", d(200), now)
	if best == nil || best.ID != "3" {
		t.Fatalf("wanted discount 3, got %+v", best)
	}

	if best := BestFor(nil, "p1", "", d(100), now); best != nil {
		t.Fatalf("wanted nil, got %+v", best)
	}
	if best := BestFor(discounts, "p1", "", d(0), now); best != nil {
		t.Fatalf("wanted nil for a zero unit price, got %+v", best)
	}
}

func TestPriceLine(t *testing.T) {
	now := time.Now().UTC()
	discounts := []*gobs.Discount{
		{ID: "1", Type: "percent", Scope: "product", ScopeValue: "p1", Value: d(20), IsActive: true},
	}

	p := PriceLine(discounts, "p1", "", d(100), 3, now)
	if p.DiscountID != "1" {
		t.Fatalf("wanted discount 1, got %q", p.DiscountID)
	}
	if !p.DiscountAmount.Equal(d(20)) {
		t.Fatalf("wanted discount amount 20, got %v", p.DiscountAmount)
	}
	if !p.FinalUnitPrice.Equal(d(80)) {
		t.Fatalf("wanted final unit price 80, got %v", p.FinalUnitPrice)
	}
	if !p.LineTotal.Equal(d(240)) {
		t.Fatalf("wanted line total 240, got %v", p.LineTotal)
	}

	// No applicable discount leaves the unit price untouched.
	p = PriceLine(discounts, "p2", "", d(100), 2, now)
	if len(p.DiscountID) != 0 || !p.FinalUnitPrice.Equal(d(100)) || !p.LineTotal.Equal(d(200)) {
		t.Fatalf("wanted undiscounted line, got %+v", p)
	}
}

func TestTotals(t *testing.T) {
	items := []*gobs.OrderItem{
		{Quantity: 2, UnitPrice: d(100), DiscountAmount: d(20), FinalUnitPrice: d(80), LineTotal: d(160)},
		{Quantity: 1, UnitPrice: d(50), DiscountAmount: d(0), FinalUnitPrice: d(50), LineTotal: d(50)},
	}
	subtotal, discountTotal, total := Totals(items)
	if !subtotal.Equal(d(250)) {
		t.Fatalf("wanted subtotal 250, got %v", subtotal)
	}
	if !discountTotal.Equal(d(40)) {
		t.Fatalf("wanted discount total 40, got %v", discountTotal)
	}
	if !total.Equal(d(210)) {
		t.Fatalf("wanted total 210, got %v", total)
	}
	if !subtotal.Sub(discountTotal).Equal(total) {
		t.Fatalf("totals do not add up: %v - %v != %v", subtotal, discountTotal, total)
	}
}
