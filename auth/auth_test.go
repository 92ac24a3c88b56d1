// Copyright (c) 2025 BVK Chaitanya

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/users"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
)

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService("test-secret", "salesd", 15*time.Minute, 30*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestService(t)

	access, err := s.IssueAccess("u1")
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := s.Parse(access.Value, "access")
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Subject != "u1" || parsed.Type != "access" {
		t.Fatalf("wanted u1/access, got %q/%q", parsed.Subject, parsed.Type)
	}

	refresh, err := s.IssueRefresh("u1")
	if err != nil {
		t.Fatal(err)
	}
	parsed, err = s.Parse(refresh.Value, "refresh")
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.JTI) == 0 {
		t.Fatal("wanted a jti on the refresh token")
	}

	// A token of the wrong type is rejected.
	if _, err := s.Parse(access.Value, "refresh"); !fault.IsKind(err, fault.Unauthorized) {
		t.Fatalf("wanted unauthorized, got %v", err)
	}
	// A token signed under another secret is rejected.
	other, err := NewTokenService("other-secret", "salesd", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Parse(access.Value, "access"); !fault.IsKind(err, fault.Unauthorized) {
		t.Fatalf("wanted unauthorized, got %v", err)
	}
	if _, err := s.Parse("garbage", "access"); !fault.IsKind(err, fault.Unauthorized) {
		t.Fatalf("wanted unauthorized, got %v", err)
	}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	s := newTestService(t)

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		_, err := users.Create(ctx, rw, &users.CreateArgs{
			Email:    "jane@example.com",
			Password: "hunter22",
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	var access, refresh *Token
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, _, err := s.Login(ctx, rw, "jane@example.com", "wrong"); !fault.IsKind(err, fault.Unauthorized) {
			t.Fatalf("wanted unauthorized for a bad password, got %v", err)
		}
		var err error
		access, refresh, err = s.Login(ctx, rw, "jane@example.com", "hunter22")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		u, err := s.Authenticate(ctx, r, access.Value)
		if err != nil {
			return err
		}
		if u.Email != "jane@example.com" {
			t.Fatalf("wanted jane, got %q", u.Email)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Refresh rotates the pair and invalidates the old refresh token.
	var rotated *Token
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		var err error
		_, rotated, err = s.Refresh(ctx, rw, refresh.Value)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, _, err := s.Refresh(ctx, rw, refresh.Value); !fault.IsKind(err, fault.Unauthorized) {
			t.Fatalf("wanted unauthorized for the rotated-out token, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Logout removes the session; the rotated token dies with it.
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return s.Logout(ctx, rw, rotated.Value)
	})
	if err != nil {
		t.Fatal(err)
	}
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, _, err := s.Refresh(ctx, rw, rotated.Value); !fault.IsKind(err, fault.Unauthorized) {
			t.Fatalf("wanted unauthorized after logout, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGuestCannotLogin(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	s := newTestService(t)

	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		_, _, err := users.GetOrCreateByContact(ctx, rw, &users.Contact{
			Email:     "guest@example.com",
			FirstName: "Guest",
			LastName:  "Buyer",
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, _, err := s.Login(ctx, rw, "guest@example.com", "!"); !fault.IsKind(err, fault.Unauthorized) {
			t.Fatalf("wanted unauthorized for a guest, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
