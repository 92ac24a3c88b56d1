// Copyright (c) 2025 BVK Chaitanya

package catalog

import (
	"context"
	"testing"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestCreateCategoryUnique(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, err := CreateCategory(ctx, rw, "Toys"); err != nil {
			return err
		}
		if _, err := CreateCategory(ctx, rw, "  "); !fault.IsKind(err, fault.Validation) {
			t.Fatalf("wanted validation error, got %v", err)
		}
		// Names are unique case-insensitively.
		if _, err := CreateCategory(ctx, rw, "toys"); !fault.IsKind(err, fault.Conflict) {
			t.Fatalf("wanted conflict, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMinVariantPriceSpansInactiveVariants(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := CreateProduct(ctx, rw, &CreateProductArgs{Name: "shirt", IsActive: true})
		if err != nil {
			return err
		}
		if _, err := CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{SKU: "S-M", Price: decimal.NewFromInt(120), IsActive: true}); err != nil {
			return err
		}
		// The cheapest variant is inactive and still sets the floor.
		if _, err := CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{SKU: "S-S", Price: decimal.NewFromInt(90), IsActive: false}); err != nil {
			return err
		}
		min, err := MinVariantPrice(ctx, rw, p.ID)
		if err != nil {
			return err
		}
		if min == nil || !min.Equal(decimal.NewFromInt(90)) {
			t.Fatalf("wanted min price 90, got %v", min)
		}

		bare, err := CreateProduct(ctx, rw, &CreateProductArgs{Name: "bare", IsActive: true})
		if err != nil {
			return err
		}
		min, err = MinVariantPrice(ctx, rw, bare.ID)
		if err != nil {
			return err
		}
		if min != nil {
			t.Fatalf("wanted no price without variants, got %v", min)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGetVariant(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	var active, inactive *gobs.ProductVariant
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := CreateProduct(ctx, rw, &CreateProductArgs{Name: "shirt", IsActive: true})
		if err != nil {
			return err
		}
		if active, err = CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{SKU: "S-M", Price: decimal.NewFromInt(100), Stock: 3, IsActive: true}); err != nil {
			return err
		}
		inactive, err = CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{SKU: "S-S", Price: decimal.NewFromInt(100), IsActive: false})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		if _, err := GetVariant(ctx, r, active.ID); err != nil {
			return err
		}
		if _, err := GetVariant(ctx, r, inactive.ID); !fault.IsKind(err, fault.NotFound) {
			t.Fatalf("wanted not-found for an inactive variant, got %v", err)
		}
		if _, err := GetVariant(ctx, r, "no-such-id"); !fault.IsKind(err, fault.NotFound) {
			t.Fatalf("wanted not-found, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Duplicate skus are rejected across products.
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := CreateProduct(ctx, rw, &CreateProductArgs{Name: "other", IsActive: true})
		if err != nil {
			return err
		}
		if _, err := CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{SKU: "S-M", Price: decimal.NewFromInt(10), IsActive: true}); !fault.IsKind(err, fault.Conflict) {
			t.Fatalf("wanted conflict, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTakeStock(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	var variant *gobs.ProductVariant
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := CreateProduct(ctx, rw, &CreateProductArgs{Name: "shirt", IsActive: true})
		if err != nil {
			return err
		}
		variant, err = CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{SKU: "S-M", Price: decimal.NewFromInt(100), Stock: 2, IsActive: true})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := TakeStock(ctx, rw, variant.ID, 2)
		if err != nil {
			return err
		}
		if v.Stock != 0 {
			t.Fatalf("wanted stock 0, got %d", v.Stock)
		}
		if _, err := TakeStock(ctx, rw, variant.ID, 1); !fault.IsKind(err, fault.Conflict) {
			t.Fatalf("wanted conflict, got %v", err)
		}
		v, err = AddStock(ctx, rw, variant.ID, 3)
		if err != nil {
			return err
		}
		if v.Stock != 3 {
			t.Fatalf("wanted stock 3, got %d", v.Stock)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	// cheap (toys, 50), pricey (toys, 200), shirt (clothes, 100) and a
	// variantless product with no price.
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		for _, name := range []string{"toys", "clothes"} {
			if _, err := CreateCategory(ctx, rw, name); err != nil {
				return err
			}
		}
		seed := []struct {
			name, category string
			price          int64
		}{
			{"cheap", "toys", 50},
			{"pricey", "toys", 200},
			{"shirt", "clothes", 100},
		}
		for _, s := range seed {
			p, err := CreateProduct(ctx, rw, &CreateProductArgs{Name: s.name, Category: s.category, IsActive: true})
			if err != nil {
				return err
			}
			if _, err := CreateVariant(ctx, rw, p.ID, &CreateVariantArgs{SKU: "SKU-" + s.name, Price: decimal.NewFromInt(s.price), IsActive: true}); err != nil {
				return err
			}
		}
		_, err := CreateProduct(ctx, rw, &CreateProductArgs{Name: "bare", IsActive: true})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	names := func(listed []*ListedProduct) []string {
		var out []string
		for _, lp := range listed {
			out = append(out, lp.Product.Name)
		}
		return out
	}
	equal := func(a, b []string) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		// Price ascending puts the priceless product last.
		listed, err := ListProducts(ctx, r, &ListFilter{SortBy: "price", SortOrder: "asc"})
		if err != nil {
			return err
		}
		if got := names(listed); !equal(got, []string{"cheap", "shirt", "pricey", "bare"}) {
			t.Fatalf("price asc: got %v", got)
		}

		listed, err = ListProducts(ctx, r, &ListFilter{SortBy: "price", SortOrder: "desc"})
		if err != nil {
			return err
		}
		if got := names(listed); !equal(got, []string{"pricey", "shirt", "cheap", "bare"}) {
			t.Fatalf("price desc: got %v", got)
		}

		listed, err = ListProducts(ctx, r, &ListFilter{SortBy: "name", SortOrder: "asc"})
		if err != nil {
			return err
		}
		if got := names(listed); !equal(got, []string{"bare", "cheap", "pricey", "shirt"}) {
			t.Fatalf("name asc: got %v", got)
		}

		// Price filters exclude products without a price.
		listed, err = ListProducts(ctx, r, &ListFilter{MinPrice: dec(60), SortBy: "price", SortOrder: "asc"})
		if err != nil {
			return err
		}
		if got := names(listed); !equal(got, []string{"shirt", "pricey"}) {
			t.Fatalf("min price: got %v", got)
		}
		listed, err = ListProducts(ctx, r, &ListFilter{MaxPrice: dec(100), SortBy: "price", SortOrder: "asc"})
		if err != nil {
			return err
		}
		if got := names(listed); !equal(got, []string{"cheap", "shirt"}) {
			t.Fatalf("max price: got %v", got)
		}

		listed, err = ListProducts(ctx, r, &ListFilter{Category: "toys", SortBy: "name"})
		if err != nil {
			return err
		}
		if got := names(listed); !equal(got, []string{"cheap", "pricey"}) {
			t.Fatalf("category: got %v", got)
		}
		for _, lp := range listed {
			if lp.Category != "toys" {
				t.Fatalf("wanted category toys, got %q", lp.Category)
			}
		}

		// An unknown category matches nothing.
		listed, err = ListProducts(ctx, r, &ListFilter{Category: "nope"})
		if err != nil {
			return err
		}
		if len(listed) != 0 {
			t.Fatalf("wanted no products, got %v", names(listed))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
