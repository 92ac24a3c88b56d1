// Copyright (c) 2025 BVK Chaitanya

package users

import (
	"context"
	"testing"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	var u *gobs.User
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		u, err = Create(ctx, rw, &CreateArgs{
			Email:     "Jane.Doe@Example.com",
			FirstName: "Jane",
			LastName:  "Doe",
			Password:  "hunter22",
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "jane.doe@example.com" {
		t.Fatalf("wanted a lowercased email, got %q", u.Email)
	}
	if !u.HasAccount || !u.IsActive || u.IsAdmin {
		t.Fatalf("wanted an active non-admin account, got %+v", u)
	}
	if !VerifyPassword(u.PasswordHash, "hunter22") {
		t.Fatal("wanted the password to verify")
	}
	if VerifyPassword(u.PasswordHash, "wrong") {
		t.Fatal("wanted a wrong password to fail")
	}

	// The email index is case-insensitive, so re-registration conflicts.
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		_, err := Create(ctx, rw, &CreateArgs{Email: "JANE.DOE@example.com", Password: "x"})
		return err
	})
	if !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("wanted conflict, got %v", err)
	}
}

func TestGuestSentinelNeverVerifies(t *testing.T) {
	if VerifyPassword(GuestPasswordHash, "") {
		t.Fatal("wanted the sentinel hash to reject the empty password")
	}
	if VerifyPassword(GuestPasswordHash, "!") {
		t.Fatal("wanted the sentinel hash to reject itself")
	}
}

func TestGetOrCreateByContact(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	resolve := func(c *Contact) (*gobs.User, bool, error) {
		var u *gobs.User
		var created bool
		err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
			var err error
			u, created, err = GetOrCreateByContact(ctx, rw, c)
			return err
		})
		return u, created, err
	}

	u, created, err := resolve(&Contact{
		Email:     "Guest@Example.com",
		FirstName: "Guest",
		LastName:  "Buyer",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("wanted a created guest")
	}
	if u.PasswordHash != GuestPasswordHash || u.HasAccount {
		t.Fatalf("wanted a guest with the sentinel hash, got %+v", u)
	}

	// The same contact resolves to the same user; names compare
	// case-insensitively.
	again, created, err := resolve(&Contact{
		Email:     "guest@example.com",
		FirstName: "GUEST",
		LastName:  "buyer",
	})
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != u.ID {
		t.Fatalf("wanted the existing guest, got created=%v id=%q", created, again.ID)
	}

	// A contradicting name is a conflict.
	if _, _, err := resolve(&Contact{Email: "guest@example.com", FirstName: "Someone", LastName: "Else"}); !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("wanted conflict, got %v", err)
	}

	// Missing phone and dni fill in from the contact; later contradicting
	// values conflict.
	filled, _, err := resolve(&Contact{
		Email:     "guest@example.com",
		FirstName: "Guest",
		LastName:  "Buyer",
		Phone:     "+54 (11) 5555-0001",
		DNI:       "12345678",
	})
	if err != nil {
		t.Fatal(err)
	}
	if filled.Phone != "+541155550001" || filled.DNI != "12345678" {
		t.Fatalf("wanted normalized phone and dni, got %q and %q", filled.Phone, filled.DNI)
	}
	if _, _, err := resolve(&Contact{Email: "guest@example.com", Phone: "+54 11 5555-0002"}); !fault.IsKind(err, fault.Conflict) {
		t.Fatalf("wanted conflict on the phone, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, err := Create(ctx, rw, &CreateArgs{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Password: "x"}); err != nil {
			return err
		}
		_, err := Create(ctx, rw, &CreateArgs{Email: "john@example.com", FirstName: "John", LastName: "Doe", Password: "x"})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		if _, err := Search(ctx, r, &SearchFilter{}); !fault.IsKind(err, fault.Validation) {
			t.Fatalf("wanted validation error without filters, got %v", err)
		}
		matched, err := Search(ctx, r, &SearchFilter{LastName: "doe", Limit: 10})
		if err != nil {
			return err
		}
		if len(matched) != 2 {
			t.Fatalf("wanted two matches, got %d", len(matched))
		}
		matched, err = Search(ctx, r, &SearchFilter{Email: "jane"})
		if err != nil {
			return err
		}
		if len(matched) != 1 || matched[0].Email != "jane@example.com" {
			t.Fatalf("wanted jane, got %+v", matched)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
