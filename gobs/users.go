// Copyright (c) 2025 BVK Chaitanya

package gobs

import "time"

type User struct {
	ID    string
	Email string

	FirstName string
	LastName  string

	// Phone and DNI are optional; empty means not provided.
	Phone string
	DNI   string

	// PasswordHash is a bcrypt hash, or the "!" sentinel for guest users
	// that cannot log in.
	PasswordHash string

	HasAccount bool
	IsAdmin    bool
	IsActive   bool

	CreatedAt time.Time
}

// UserRefreshSession holds the single active refresh token per user. Only a
// SHA-256 hash of the token is stored.
type UserRefreshSession struct {
	UserID string

	TokenHash string
	TokenJTI  string

	ClaimSub    string
	ClaimType   string
	ClaimIssuer string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Turn struct {
	ID     string
	UserID string

	Status string
	Notes  string

	ScheduledAt time.Time

	CreatedAt time.Time
}
