// Copyright (c) 2025 BVK Chaitanya

package payment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/reserve"
	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"
)

var amountTolerance = decimal.NewFromFloat(0.01)

// canTransition is the payment state table: pending can move anywhere,
// terminal states only absorb themselves.
func canTransition(from, to string) bool {
	if from == "pending" {
		switch to {
		case "pending", "paid", "cancelled", "expired":
			return true
		}
		return false
	}
	return from == to
}

// ApplyNormalizedState reconciles a payment with the provider's normalized
// view of it, moving the order along when the payment settles or dies.
func (pr *Processor) ApplyNormalizedState(ctx context.Context, rw kv.ReadWriter, paymentID string, ns *NormalizedState, notification json.RawMessage) (*gobs.Payment, error) {
	now := time.Now().UTC()
	if _, err := ExpireReservations(ctx, rw, now); err != nil {
		return nil, err
	}

	p, err := Get(ctx, rw, paymentID)
	if err != nil {
		return nil, err
	}

	if len(ns.ExternalReference) != 0 && ns.ExternalReference != p.ExternalReference {
		return nil, fault.Validationf("external reference mismatch")
	}
	if ns.AmountKnown {
		if ns.Amount.Sub(p.Amount).Abs().GreaterThan(amountTolerance) {
			return nil, fault.Validationf("payment amount mismatch")
		}
	}
	if len(ns.Currency) != 0 && !strings.EqualFold(ns.Currency, p.Currency) {
		return nil, fault.Validationf("payment currency mismatch")
	}

	if !canTransition(p.Status, ns.Target) {
		return nil, fault.Conflictf("invalid payment transition from %q to %q", p.Status, ns.Target)
	}

	p.ProviderStatus = ns.ProviderStatus
	if err := mergePayload(p, ns, notification, now); err != nil {
		return nil, err
	}

	switch ns.Target {
	case "paid":
		if p.Status != "paid" {
			o, err := order.Get(ctx, rw, p.OrderID)
			if err != nil {
				return nil, err
			}
			if o.Status != "submitted" && o.Status != "paid" {
				return nil, fault.Conflictf("order is not payable in status %q", o.Status)
			}
			if o.Status == "submitted" {
				if err := reserve.Consume(ctx, rw, o, now); err != nil {
					return nil, err
				}
			}
			if err := order.MarkPaid(ctx, rw, o, now); err != nil {
				return nil, err
			}
			p.Status = "paid"
			p.PaidAt = now
		}
	case "cancelled":
		if p.Status != "cancelled" {
			p.Status = "cancelled"
			o, err := order.Get(ctx, rw, p.OrderID)
			if err != nil {
				return nil, err
			}
			if o.Status != "paid" {
				if err := order.Cancel(ctx, rw, o, now); err != nil {
					return nil, err
				}
			}
		}
	case "expired":
		p.Status = "expired"
	case "pending":
		// Provider is still settling; only provider_status advances.
	default:
		return nil, fault.Validationf("unsupported payment state %q", ns.Target)
	}

	if err := savePending(ctx, rw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// mergePayload folds the notification, the provider lookup and a
// reconciliation stamp into the payment's opaque provider payload.
func mergePayload(p *gobs.Payment, ns *NormalizedState, notification json.RawMessage, now time.Time) error {
	payload := make(map[string]json.RawMessage)
	if len(p.ProviderPayload) != 0 {
		if err := json.Unmarshal([]byte(p.ProviderPayload), &payload); err != nil {
			// An older payload that is not an object is preserved verbatim.
			raw, _ := json.Marshal(p.ProviderPayload)
			payload = map[string]json.RawMessage{"previous": raw}
		}
	}
	if len(notification) != 0 {
		payload["notification"] = notification
	}
	if len(ns.Raw) != 0 {
		payload["payment_lookup"] = ns.Raw
	}
	recon, err := json.Marshal(map[string]any{
		"provider_status": ns.ProviderStatus,
		"target_status":   ns.Target,
		"applied_at":      now.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	payload["reconciliation"] = recon

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.ProviderPayload = string(data)
	return nil
}
