// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID      string
	OrderID string
	UserID  string

	// Method is bank_transfer or mercadopago.
	Method string

	// Status is one of pending, paid, cancelled, expired.
	Status string

	Amount   decimal.Decimal
	Currency string

	IdempotencyKey string

	// ExternalReference ties the payment to provider notifications, e.g.
	// "mp-order-<order>-pay-<payment>".
	ExternalReference string

	// PaymentRef holds the manual confirmation reference for bank transfers.
	PaymentRef string

	ProviderPreferenceID string
	ProviderStatus       string
	ReceiptURL           string

	// ProviderPayload is an opaque JSON document accumulating provider
	// checkout data, notifications and reconciliation snapshots.
	ProviderPayload string

	ExpiresAt time.Time
	PaidAt    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
