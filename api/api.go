// Copyright (c) 2025 BVK Chaitanya

// Package api defines the HTTP request and response types exchanged between
// the salesd server and its clients. Successful responses are wrapped in a
// {"data": ...} envelope and failures carry a {"detail": "..."} body.
package api

// DataResponse is the envelope for successful responses.
type DataResponse struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// ErrorResponse is the envelope for failed responses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

const HealthPath = "/health"
