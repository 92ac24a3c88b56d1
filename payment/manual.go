// Copyright (c) 2025 BVK Chaitanya

package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/reserve"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// manualKey derives a deterministic idempotency key for a manual
// confirmation, so repeating the same reference cannot double-record.
func manualKey(orderID, paymentRef string) string {
	sum := sha256.Sum256([]byte(paymentRef))
	return fmt.Sprintf("manual-order-%s-%s", orderID, hex.EncodeToString(sum[:])[:16])
}

// ConfirmManual records an out-of-band bank transfer: it consumes the
// order's reservations, upserts a paid payment and marks the order paid.
// Reconfirming a paid order succeeds only when the reference and amount
// match the recorded payment.
func ConfirmManual(ctx context.Context, rw kv.ReadWriter, orderID, userID string, isAdmin bool, paymentRef string, paidAmount decimal.Decimal) (*gobs.Payment, *gobs.Order, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if len(paymentRef) == 0 {
		return nil, nil, fault.Validationf("payment_ref is required")
	}
	if !paidAmount.IsPositive() {
		return nil, nil, fault.Validationf("paid_amount must be positive")
	}

	o, err := order.GetOwned(ctx, rw, orderID, userID, isAdmin)
	if err != nil {
		return nil, nil, err
	}
	if !roundEqual(paidAmount, o.TotalAmount) {
		return nil, nil, fault.Validationf("paid_amount does not match order total")
	}

	now := time.Now().UTC()
	key := manualKey(o.ID, paymentRef)

	if o.Status == "paid" {
		p, err := findManual(ctx, rw, key)
		if err != nil {
			return nil, nil, err
		}
		if p != nil && p.Status == "paid" && p.PaymentRef == paymentRef && roundEqual(p.Amount, paidAmount) {
			return p, o, nil
		}
		return nil, nil, fault.Conflictf("order is already paid with a different payment reference")
	}
	if o.Status != "submitted" {
		return nil, nil, fault.Validationf("invalid status transition")
	}

	if err := reserve.Consume(ctx, rw, o, now); err != nil {
		return nil, nil, err
	}

	p, err := findManual(ctx, rw, key)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		p = &gobs.Payment{
			ID:             uuid.New().String(),
			OrderID:        o.ID,
			UserID:         o.UserID,
			Method:         "bank_transfer",
			Amount:         paidAmount.Round(2),
			Currency:       strings.ToUpper(o.Currency),
			IdempotencyKey: key,
			CreatedAt:      now,
		}
		if err := kvutil.SetString(ctx, rw, idempotencyKey(key), p.ID); err != nil {
			return nil, nil, err
		}
		if err := kvutil.SetString(ctx, rw, orderIndexKey(o.ID, p.ID), p.ID); err != nil {
			return nil, nil, err
		}
	}
	p.Status = "paid"
	p.PaymentRef = paymentRef
	p.ExternalReference = paymentRef
	p.ProviderStatus = "manual_confirmed"
	p.PaidAt = now
	if err := savePending(ctx, rw, p); err != nil {
		return nil, nil, err
	}

	if err := order.MarkPaid(ctx, rw, o, now); err != nil {
		return nil, nil, err
	}
	return p, o, nil
}

func findManual(ctx context.Context, r kv.Reader, key string) (*gobs.Payment, error) {
	id, err := kvutil.GetString[string](ctx, r, idempotencyKey(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return Get(ctx, r, id)
}
