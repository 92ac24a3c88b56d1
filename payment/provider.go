// Copyright (c) 2025 BVK Chaitanya

package payment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Provider abstracts the Mercado Pago REST API surface the payment
// lifecycle needs.
type Provider interface {
	CreatePreference(ctx context.Context, req *PreferenceRequest, idempotencyKey string) (*Preference, error)
	GetPayment(ctx context.Context, id string) (*ProviderPayment, error)
}

type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int64   `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type BackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type PreferenceRequest struct {
	Items             []*PreferenceItem `json:"items"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	BackURLs          *BackURLs         `json:"back_urls,omitempty"`
	Expires           bool              `json:"expires"`
	DateOfExpiration  string            `json:"date_of_expiration,omitempty"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// ProviderPayment is the authoritative payment document fetched from the
// provider. Raw preserves the response body for audit payloads.
type ProviderPayment struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	CurrencyID        string          `json:"currency_id"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	DateCreated       string          `json:"date_created"`
	DateApproved      string          `json:"date_approved"`

	Payer              map[string]any `json:"payer,omitempty"`
	TransactionDetails map[string]any `json:"transaction_details,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	AdditionalInfo     map[string]any `json:"additional_info,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// NormalizedState is the provider payment state mapped to the internal
// payment status vocabulary.
type NormalizedState struct {
	ProviderID string

	// ProviderStatus is the raw provider status string.
	ProviderStatus string

	// Target is the internal payment status the provider state maps to.
	Target string

	ExternalReference string
	Currency          string

	Amount      decimal.Decimal
	AmountKnown bool

	Raw json.RawMessage
}
