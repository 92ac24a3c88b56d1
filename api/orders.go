// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrdersPath        = "/orders"
	OrdersDraftPath   = "/orders/draft"
	CheckoutGuestPath = "/checkout/guest"
	OrdersManualPath  = "/orders/manual/submitted"
	AdminExpirePath   = "/admin/stock-reservations/expire"
)

type Order struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
	Currency string `json:"currency"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TotalAmount   decimal.Decimal `json:"total_amount"`

	Items []*OrderItem `json:"items"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`

	Quantity int64 `json:"quantity"`

	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountID     string          `json:"discount_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalUnitPrice decimal.Decimal `json:"final_unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

type AddOrderItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

type ChangeOrderStatusRequest struct {
	Status     string           `json:"status"`
	PaymentRef string           `json:"payment_ref"`
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

type PayOrderRequest struct {
	PaymentRef string           `json:"payment_ref"`
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

type CheckoutCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	DNI       string `json:"dni"`
}

type CheckoutItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

type GuestCheckoutRequest struct {
	Customer *CheckoutCustomer `json:"customer"`
	Items    []*CheckoutItem   `json:"items"`

	// Website is a honeypot field; any non-empty value rejects the request.
	Website string `json:"website"`
}

type GuestCheckoutResponse struct {
	Order    *Order `json:"order"`
	Customer *User  `json:"customer"`
}

type ExpireReservationsResponse struct {
	ExpiredCount int `json:"expired_count"`
}

type StockReservation struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	OrderItemID string `json:"order_item_id"`
	VariantID   string `json:"variant_id"`

	Quantity int64  `json:"quantity"`
	Status   string `json:"status"`

	ExpiresAt         time.Time `json:"expires_at"`
	ReactivationCount int       `json:"reactivation_count"`

	ReleaseReason string `json:"release_reason,omitempty"`
}
