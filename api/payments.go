// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentsPath           = "/payments"
	MercadoPagoWebhookPath = "/payments/webhook/mercadopago"
)

type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`

	Method string `json:"method"`
	Status string `json:"status"`

	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	ExternalReference string `json:"external_reference,omitempty"`
	ProviderStatus    string `json:"provider_status,omitempty"`

	// ProviderPayload carries checkout instructions or provider checkout
	// data as an opaque JSON document.
	ProviderPayload json.RawMessage `json:"provider_payload,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type CreatePaymentRequest struct {
	Method           string `json:"method"`
	Currency         string `json:"currency"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

type WebhookResponse struct {
	Processed bool     `json:"processed"`
	Reason    string   `json:"reason,omitempty"`
	Payment   *Payment `json:"payment,omitempty"`
}

type CreateDiscountRequest struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Scope      string          `json:"scope"`
	ScopeValue string          `json:"scope_value"`
	ProductIDs []string        `json:"product_ids"`
	Value      decimal.Decimal `json:"value"`
	IsActive   *bool           `json:"is_active"`
	StartsAt   *time.Time      `json:"starts_at"`
	EndsAt     *time.Time      `json:"ends_at"`
}

type Discount struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Scope      string          `json:"scope"`
	ScopeValue string          `json:"scope_value,omitempty"`
	ProductIDs []string        `json:"product_ids,omitempty"`
	Value      decimal.Decimal `json:"value"`
	IsActive   bool            `json:"is_active"`
	StartsAt   *time.Time      `json:"starts_at,omitempty"`
	EndsAt     *time.Time      `json:"ends_at,omitempty"`
}

const DiscountsPath = "/discounts"
