// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"net/mail"
	"strings"
)

func (r *CreateCategoryRequest) Check() error {
	if len(strings.TrimSpace(r.Name)) == 0 {
		return fmt.Errorf("category name cannot be empty")
	}
	return nil
}

func (r *CreateProductRequest) Check() error {
	if len(strings.TrimSpace(r.Name)) == 0 {
		return fmt.Errorf("product name cannot be empty")
	}
	if r.Price != nil && r.Price.IsNegative() {
		return fmt.Errorf("product price cannot be negative")
	}
	return nil
}

func (r *CreateVariantRequest) Check() error {
	if len(strings.TrimSpace(r.SKU)) == 0 {
		return fmt.Errorf("variant sku cannot be empty")
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("variant price cannot be negative")
	}
	if r.Stock < 0 {
		return fmt.Errorf("variant stock cannot be negative")
	}
	return nil
}

func (r *AddVariantStockRequest) Check() error {
	if r.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return nil
}

func (r *CreateUserRequest) Check() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	if len(strings.TrimSpace(r.FirstName)) == 0 {
		return fmt.Errorf("first name cannot be empty")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

func (r *ResolveUserRequest) Check() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	if len(strings.TrimSpace(r.FirstName)) == 0 {
		return fmt.Errorf("first name cannot be empty")
	}
	return nil
}

func (r *LoginRequest) Check() error {
	if len(r.Email) == 0 || len(r.Password) == 0 {
		return fmt.Errorf("email and password are required")
	}
	return nil
}

func (r *AddOrderItemRequest) Check() error {
	if len(r.VariantID) == 0 {
		return fmt.Errorf("variant_id is required")
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return nil
}

func (r *ChangeOrderStatusRequest) Check() error {
	switch r.Status {
	case "draft", "submitted", "paid", "cancelled":
		return nil
	}
	return fmt.Errorf("unsupported order status %q", r.Status)
}

func (r *PayOrderRequest) Check() error {
	if len(strings.TrimSpace(r.PaymentRef)) == 0 {
		return fmt.Errorf("payment_ref is required")
	}
	if r.PaidAmount == nil {
		return fmt.Errorf("paid_amount is required")
	}
	return nil
}

func (r *CreatePaymentRequest) Check() error {
	if r.Method != "bank_transfer" && r.Method != "mercadopago" {
		return fmt.Errorf("unsupported payment method %q", r.Method)
	}
	if r.ExpiresInMinutes < 0 || r.ExpiresInMinutes > 1440 {
		return fmt.Errorf("expires_in_minutes must be between 1 and 1440")
	}
	return nil
}

func (r *GuestCheckoutRequest) Check() error {
	if r.Customer == nil {
		return fmt.Errorf("customer is required")
	}
	if _, err := mail.ParseAddress(r.Customer.Email); err != nil {
		return fmt.Errorf("invalid customer email address")
	}
	if len(strings.TrimSpace(r.Customer.FirstName)) == 0 {
		return fmt.Errorf("customer first name cannot be empty")
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	for _, item := range r.Items {
		if len(item.VariantID) == 0 {
			return fmt.Errorf("item variant_id is required")
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item quantity must be positive")
		}
	}
	return nil
}

func (r *CreateDiscountRequest) Check() error {
	if len(strings.TrimSpace(r.Name)) == 0 {
		return fmt.Errorf("discount name cannot be empty")
	}
	if r.Type != "percent" && r.Type != "fixed" {
		return fmt.Errorf("unsupported discount type %q", r.Type)
	}
	switch r.Scope {
	case "all", "category", "product", "product_list":
	default:
		return fmt.Errorf("unsupported discount scope %q", r.Scope)
	}
	return nil
}
