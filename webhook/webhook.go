// Copyright (c) 2025 BVK Chaitanya

// Package webhook reconciles Mercado Pago notifications with the payment
// store: signature verification, replay suppression through an event log,
// an authoritative payment fetch from the provider and the normalization of
// provider statuses into the internal vocabulary.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/payment"
	"github.com/bvkgo/kv"
)

const providerName = "mercadopago"

type Reconciler struct {
	db kv.Database

	secret string

	provider  payment.Provider
	processor *payment.Processor
}

func NewReconciler(db kv.Database, secret string, provider payment.Provider, processor *payment.Processor) *Reconciler {
	return &Reconciler{
		db:        db,
		secret:    secret,
		provider:  provider,
		processor: processor,
	}
}

// Result reports the outcome of a delivery. Soft no-ops come back with
// Processed=false and a reason instead of an error, so the provider is not
// prompted to retry them.
type Result struct {
	Processed bool
	Reason    string
	Payment   *gobs.Payment
}

// Process runs the full reconciliation pipeline for one webhook delivery.
// A bad signature returns an Unauthorized error; unexpected failures mark
// the event failed and bubble up for a retryable response.
func (rc *Reconciler) Process(ctx context.Context, signatureHeader, requestID string, body []byte) (*Result, error) {
	// Numbers must come out as json.Number; a float64 decode would mangle
	// large numeric ids and break signature verification over data.id.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var envelope map[string]any
	if err := dec.Decode(&envelope); err != nil || envelope == nil {
		return &Result{Reason: "invalid payload"}, nil
	}

	topic := stringField(envelope, "type")
	if len(topic) == 0 {
		topic = stringField(envelope, "topic")
	}
	if len(topic) != 0 && topic != "payment" {
		return &Result{Reason: fmt.Sprintf("unsupported topic %q", topic)}, nil
	}

	dataID := dataIDField(envelope)
	if len(dataID) == 0 {
		return &Result{Reason: "missing data id"}, nil
	}

	if !VerifySignature(rc.secret, dataID, requestID, signatureHeader) {
		return nil, fault.Unauthorizedf("invalid webhook signature")
	}

	key := deliveryKey(envelope, topic, dataID)

	acquired, err := acquireEvent(ctx, rc.db, providerName, key, string(body))
	if err != nil {
		return nil, err
	}
	if !acquired {
		return &Result{Reason: "duplicate webhook event"}, nil
	}

	pp, err := rc.provider.GetPayment(ctx, dataID)
	if err != nil {
		slog.Warn("mercadopago payment lookup failed", "data_id", dataID, "err", err)
		if merr := markEvent(ctx, rc.db, providerName, key, "failed", err.Error(), ""); merr != nil {
			return nil, merr
		}
		return &Result{Reason: "payment lookup failed"}, nil
	}

	ns, err := Normalize(pp)
	if err != nil {
		if merr := markEvent(ctx, rc.db, providerName, key, "failed", err.Error(), ""); merr != nil {
			return nil, merr
		}
		return nil, err
	}

	var applied *gobs.Payment
	apply := func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := payment.FindByExternalReference(ctx, rw, ns.ExternalReference)
		if err != nil {
			return err
		}
		applied, err = rc.processor.ApplyNormalizedState(ctx, rw, p.ID, ns, json.RawMessage(body))
		return err
	}
	if err := kv.WithReadWriter(ctx, rc.db, apply); err != nil {
		if fault.IsKind(err, fault.NotFound) {
			if merr := markEvent(ctx, rc.db, providerName, key, "processed", "", ""); merr != nil {
				return nil, merr
			}
			return &Result{Reason: "payment not found"}, nil
		}
		if merr := markEvent(ctx, rc.db, providerName, key, "failed", err.Error(), ""); merr != nil {
			return nil, merr
		}
		return nil, err
	}

	if err := markEvent(ctx, rc.db, providerName, key, "processed", "", applied.ID); err != nil {
		return nil, err
	}
	return &Result{Processed: true, Payment: applied}, nil
}

// deliveryKey builds the dedup key for a delivery: the provider event id
// when present, otherwise a synthetic key from topic, data id and action.
func deliveryKey(envelope map[string]any, topic, dataID string) string {
	if id := stringField(envelope, "id"); len(id) != 0 {
		return "mp:event:" + strings.ToLower(strings.TrimSpace(id))
	}
	if len(topic) == 0 {
		topic = "payment"
	}
	action := stringField(envelope, "action")
	if len(action) == 0 {
		action = "unknown"
	}
	return fmt.Sprintf("mp:%s:%s:%s", topic, dataID, action)
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func dataIDField(envelope map[string]any) string {
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(data, "id")
}

// Normalize maps a provider payment document to the internal payment state
// vocabulary. Unsupported provider statuses are errors so that they are
// recorded instead of silently dropped.
func Normalize(pp *payment.ProviderPayment) (*payment.NormalizedState, error) {
	id := pp.ID.String()
	if len(id) == 0 {
		return nil, fault.Validationf("provider payment has no id")
	}
	status := strings.ToLower(strings.TrimSpace(pp.Status))
	if len(status) == 0 {
		return nil, fault.Validationf("provider payment has no status")
	}
	if len(pp.ExternalReference) == 0 {
		return nil, fault.Validationf("provider payment has no external reference")
	}

	var target string
	switch status {
	case "approved", "accredited":
		target = "paid"
	case "pending", "in_process", "in_mediation", "authorized":
		target = "pending"
	case "rejected", "cancelled", "canceled":
		target = "cancelled"
	case "expired":
		target = "expired"
	default:
		return nil, fault.Validationf("unsupported provider payment status %q", status)
	}

	return &payment.NormalizedState{
		ProviderID:        id,
		ProviderStatus:    status,
		Target:            target,
		ExternalReference: pp.ExternalReference,
		Currency:          strings.ToUpper(pp.CurrencyID),
		Amount:            pp.TransactionAmount,
		AmountKnown:       pp.TransactionAmount.IsPositive(),
		Raw:               pp.Raw,
	}, nil
}
