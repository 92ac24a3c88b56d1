// Copyright (c) 2025 BVK Chaitanya

package gobs

import "time"

type StockReservation struct {
	ID string

	OrderID     string
	OrderItemID string
	VariantID   string

	Quantity int64

	// Status is one of active, consumed, released, expired.
	Status string

	ExpiresAt time.Time

	ReactivationCount int

	ConsumedAt    time.Time
	ReleasedAt    time.Time
	ReleaseReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type WebhookEvent struct {
	// EventKey is the provider-scoped deduplication key.
	EventKey string

	Provider string

	// Status is one of processing, processed, failed.
	Status string

	// Payload is the notification body as received.
	Payload string

	// Error holds the failure message of the last attempt, truncated.
	Error string

	PaymentID string

	ReceivedAt  time.Time
	ProcessedAt time.Time
	UpdatedAt   time.Time
}
