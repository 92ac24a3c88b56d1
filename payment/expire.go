// Copyright (c) 2025 BVK Chaitanya

package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/reserve"
	"github.com/bvkgo/kv"
)

// ExpireReservations sweeps reservations past their TTL. Reservations of a
// submitted order get one shot at reactivation under the shorter TTL when
// stock still fits; otherwise the order is cancelled along with its pending
// payments. Returns the number of reservations left expired, not counting
// reactivated ones.
func ExpireReservations(ctx context.Context, rw kv.ReadWriter, now time.Time) (int, error) {
	groups, err := reserve.Expiring(ctx, rw, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for orderID, resvs := range groups {
		o, err := order.Get(ctx, rw, orderID)
		if err != nil {
			return 0, err
		}

		// Expiration is the starting hypothesis; reactivation reverses it.
		for _, v := range resvs {
			if err := reserve.MarkExpired(ctx, rw, v, now); err != nil {
				return 0, err
			}
		}

		counts := make([]int, 0, len(resvs))
		for _, v := range resvs {
			counts = append(counts, v.ReactivationCount)
		}

		fits := true
		if o.Status == "submitted" {
			needed := make(map[string]int64)
			for _, v := range resvs {
				needed[v.VariantID] += v.Quantity
			}
			for variantID, qty := range needed {
				available, err := reserve.Available(ctx, rw, variantID, now)
				if err != nil {
					return 0, err
				}
				if available < qty {
					fits = false
					break
				}
			}
		}

		switch reserve.Classify(o.Status, counts, fits) {
		case reserve.DecisionReactivate:
			for _, v := range resvs {
				if err := reserve.Reactivate(ctx, rw, v, now); err != nil {
					return 0, err
				}
			}
			slog.Info("reactivated expiring reservations", "order", orderID, "count", len(resvs))

		case reserve.DecisionCancel:
			expired += len(resvs)
			if err := order.CancelForExpiration(ctx, rw, o, now); err != nil {
				return 0, err
			}
			if err := cancelPending(ctx, rw, orderID, now); err != nil {
				return 0, err
			}
			slog.Info("cancelled order after reservation expiry", "order", orderID, "count", len(resvs))

		case reserve.DecisionMarkExpired:
			expired += len(resvs)
		}
	}
	return expired, nil
}

// cancelPending flips every pending payment of the order to cancelled as
// part of the expiry cascade.
func cancelPending(ctx context.Context, rw kv.ReadWriter, orderID string, now time.Time) error {
	ps, err := ListForOrder(ctx, rw, orderID)
	if err != nil {
		return err
	}
	for _, p := range ps {
		if p.Status != "pending" {
			continue
		}
		p.Status = "cancelled"
		p.ProviderStatus = "order_cancelled_reservation_expired"
		if err := savePending(ctx, rw, p); err != nil {
			return err
		}
	}
	return nil
}
