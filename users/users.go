// Copyright (c) 2025 BVK Chaitanya

// Package users stores user accounts and resolves guest customers by their
// contact data. Guests carry a sentinel password hash that can never verify,
// so they cannot log in until they register.
package users

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
)

const (
	Keyspace      = "/users"
	emailKeyspace = "/user-emails"
)

// GuestPasswordHash marks users created from checkout contact data.
const GuestPasswordHash = "!"

func userKey(id string) string {
	return path.Join(Keyspace, id)
}

func emailKey(email string) string {
	return path.Join(emailKeyspace, strings.ToLower(email))
}

func Get(ctx context.Context, r kv.Reader, id string) (*gobs.User, error) {
	u, err := kvutil.Get[gobs.User](ctx, r, userKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("user not found")
		}
		return nil, err
	}
	return u, nil
}

func FindByEmail(ctx context.Context, r kv.Reader, email string) (*gobs.User, error) {
	id, err := kvutil.GetString[string](ctx, r, emailKey(email))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("user not found")
		}
		return nil, err
	}
	return Get(ctx, r, id)
}

type CreateArgs struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	DNI       string
	Password  string
	IsAdmin   bool
}

// Create registers a new account with a bcrypt password hash.
func Create(ctx context.Context, rw kv.ReadWriter, args *CreateArgs) (*gobs.User, error) {
	email := strings.ToLower(strings.TrimSpace(args.Email))
	if len(email) == 0 {
		return nil, fault.Validationf("email cannot be empty")
	}
	if ok, err := kvutil.Exists(ctx, rw, emailKey(email)); err != nil {
		return nil, err
	} else if ok {
		return nil, fault.Conflictf("email already exists")
	}
	hash, err := HashPassword(args.Password)
	if err != nil {
		return nil, err
	}
	u := &gobs.User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(args.FirstName),
		LastName:     strings.TrimSpace(args.LastName),
		Phone:        normalizePhone(args.Phone),
		DNI:          strings.TrimSpace(args.DNI),
		PasswordHash: hash,
		HasAccount:   true,
		IsActive:     true,
		IsAdmin:      args.IsAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := save(ctx, rw, u); err != nil {
		return nil, err
	}
	return u, nil
}

type Contact struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	DNI       string
}

// GetOrCreateByContact returns the user for the contact's email, creating a
// guest when none exists. An existing user whose name or phone contradicts
// the contact is a conflict; missing phone or dni values are filled in from
// the contact.
func GetOrCreateByContact(ctx context.Context, rw kv.ReadWriter, c *Contact) (*gobs.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if len(email) == 0 {
		return nil, false, fault.Validationf("email cannot be empty")
	}

	u, err := FindByEmail(ctx, rw, email)
	if err != nil && !fault.IsKind(err, fault.NotFound) {
		return nil, false, err
	}
	if u != nil {
		if mismatch(u, c) {
			return nil, false, fault.Conflictf("contact data does not match existing user for this email")
		}
		changed := false
		if len(u.Phone) == 0 && len(c.Phone) != 0 {
			u.Phone = normalizePhone(c.Phone)
			changed = true
		}
		if len(u.DNI) == 0 && len(c.DNI) != 0 {
			u.DNI = strings.TrimSpace(c.DNI)
			changed = true
		}
		if changed {
			if err := kvutil.Set(ctx, rw, userKey(u.ID), u); err != nil {
				return nil, false, err
			}
		}
		return u, false, nil
	}

	u = &gobs.User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(c.FirstName),
		LastName:     strings.TrimSpace(c.LastName),
		Phone:        normalizePhone(c.Phone),
		DNI:          strings.TrimSpace(c.DNI),
		PasswordHash: GuestPasswordHash,
		HasAccount:   false,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := save(ctx, rw, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// mismatch compares names case-insensitively and phone numbers exactly after
// normalization, only when both sides have a value.
func mismatch(u *gobs.User, c *Contact) bool {
	if len(u.FirstName) != 0 && len(c.FirstName) != 0 &&
		!strings.EqualFold(u.FirstName, strings.TrimSpace(c.FirstName)) {
		return true
	}
	if len(u.LastName) != 0 && len(c.LastName) != 0 &&
		!strings.EqualFold(u.LastName, strings.TrimSpace(c.LastName)) {
		return true
	}
	if len(u.Phone) != 0 && len(c.Phone) != 0 && u.Phone != normalizePhone(c.Phone) {
		return true
	}
	return false
}

func normalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' || r == '+' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func save(ctx context.Context, rw kv.ReadWriter, u *gobs.User) error {
	if err := kvutil.Set(ctx, rw, userKey(u.ID), u); err != nil {
		return err
	}
	return kvutil.SetString(ctx, rw, emailKey(u.Email), u.ID)
}

type SearchFilter struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	DNI       string
	Limit     int
}

// Search scans users and returns those matching all of the given filters.
// At least one filter is required; limit is clamped to the 1..100 range.
func Search(ctx context.Context, r kv.Reader, f *SearchFilter) ([]*gobs.User, error) {
	if len(f.Email) == 0 && len(f.FirstName) == 0 && len(f.LastName) == 0 &&
		len(f.Phone) == 0 && len(f.DNI) == 0 {
		return nil, fault.Validationf("at least one search filter is required")
	}
	limit := f.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	var matched []*gobs.User
	begin, end := kvutil.PathRange(Keyspace)
	collect := func(ctx context.Context, r kv.Reader, key string, u *gobs.User) error {
		if len(matched) >= limit {
			return nil
		}
		if len(f.Email) != 0 && !strings.Contains(u.Email, strings.ToLower(f.Email)) {
			return nil
		}
		if len(f.FirstName) != 0 && !strings.Contains(strings.ToLower(u.FirstName), strings.ToLower(f.FirstName)) {
			return nil
		}
		if len(f.LastName) != 0 && !strings.Contains(strings.ToLower(u.LastName), strings.ToLower(f.LastName)) {
			return nil
		}
		if len(f.Phone) != 0 && u.Phone != normalizePhone(f.Phone) {
			return nil
		}
		if len(f.DNI) != 0 && u.DNI != strings.TrimSpace(f.DNI) {
			return nil
		}
		matched = append(matched, u)
		return nil
	}
	if err := kvutil.Ascend(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	return matched, nil
}
