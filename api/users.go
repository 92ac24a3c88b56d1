// Copyright (c) 2025 BVK Chaitanya

package api

import "time"

const (
	UsersPath        = "/users"
	UsersSearchPath  = "/users/search"
	UsersResolvePath = "/users/resolve"
	TurnsPath        = "/turns"
)

type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone,omitempty"`
	DNI        string `json:"dni,omitempty"`
	HasAccount bool   `json:"has_account"`
	IsAdmin    bool   `json:"is_admin"`
	IsActive   bool   `json:"is_active"`
}

type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	DNI       string `json:"dni"`
	Password  string `json:"password"`
}

type ResolveUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	DNI       string `json:"dni"`
}

type ResolveUserResponse struct {
	User    *User `json:"user"`
	Created bool  `json:"created"`
}

// SearchUsersQuery holds the parsed query parameters of GET /users/search.
type SearchUsersQuery struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	DNI       string
	Limit     int
}

type CreateTurnRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       string     `json:"notes"`
}

type Turn struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
