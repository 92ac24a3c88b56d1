// Copyright (c) 2025 BVK Chaitanya

package webhook

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvkgo/kv"
)

const eventKeyspace = "/webhook-events"

const maxErrorLen = 2000

func eventKey(provider, key string) string {
	return path.Join(eventKeyspace, provider, key)
}

// acquireEvent records the delivery in the event log before any side
// effects run, in its own transaction. A previously failed event is revived
// for one more attempt; processing or processed events dedup the delivery.
func acquireEvent(ctx context.Context, db kv.Database, provider, key, payload string) (acquired bool, err error) {
	err = kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		now := time.Now().UTC()
		existing, err := kvutil.Get[gobs.WebhookEvent](ctx, rw, eventKey(provider, key))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if existing != nil {
			if existing.Status != "failed" {
				acquired = false
				return nil
			}
			existing.Status = "processing"
			existing.Error = ""
			existing.UpdatedAt = now
			acquired = true
			return kvutil.Set(ctx, rw, eventKey(provider, key), existing)
		}
		event := &gobs.WebhookEvent{
			EventKey:   key,
			Provider:   provider,
			Status:     "processing",
			Payload:    payload,
			ReceivedAt: now,
			UpdatedAt:  now,
		}
		acquired = true
		return kvutil.Set(ctx, rw, eventKey(provider, key), event)
	})
	return acquired, err
}

func markEvent(ctx context.Context, db kv.Database, provider, key, status, errMsg, paymentID string) error {
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		event, err := kvutil.Get[gobs.WebhookEvent](ctx, rw, eventKey(provider, key))
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		event.Status = status
		event.UpdatedAt = now
		if status == "processed" {
			event.ProcessedAt = now
		}
		if len(errMsg) > maxErrorLen {
			errMsg = errMsg[:maxErrorLen]
		}
		event.Error = errMsg
		if len(paymentID) != 0 {
			event.PaymentID = paymentID
		}
		return kvutil.Set(ctx, rw, eventKey(provider, key), event)
	})
}
