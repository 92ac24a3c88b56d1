// Copyright (c) 2025 BVK Chaitanya

// Package payment implements the payment lifecycle: idempotent creation
// with a single active pending payment per order and method, manual bank
// transfer confirmation, reconciliation of provider state and the
// reservation expiration sweep that cascades into payment cancellation.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/kvutil"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/reserve"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Keyspace = "/payments"

	keyKeyspace     = "/payment-keys"
	pendingKeyspace = "/pending-payments"
	refKeyspace     = "/payment-refs"
	orderKeyspace   = "/order-payments"
)

const DefaultExpiresInMinutes = 60

func paymentKey(id string) string {
	return path.Join(Keyspace, id)
}

func idempotencyKey(key string) string {
	return path.Join(keyKeyspace, key)
}

func pendingKey(orderID, method string) string {
	return path.Join(pendingKeyspace, orderID, method)
}

func refKey(ref string) string {
	return path.Join(refKeyspace, ref)
}

func orderIndexKey(orderID, paymentID string) string {
	return path.Join(orderKeyspace, orderID, paymentID)
}

// Processor holds the provider client and checkout configuration shared by
// payment operations.
type Processor struct {
	provider Provider

	// env selects which preference init point becomes the checkout url.
	env string

	successURL      string
	failureURL      string
	pendingURL      string
	notificationURL string
}

type ProcessorOptions struct {
	Env             string
	SuccessURL      string
	FailureURL      string
	PendingURL      string
	NotificationURL string
}

func NewProcessor(provider Provider, opts *ProcessorOptions) *Processor {
	if opts == nil {
		opts = new(ProcessorOptions)
	}
	env := opts.Env
	if len(env) == 0 {
		env = "sandbox"
	}
	return &Processor{
		provider:        provider,
		env:             env,
		successURL:      opts.SuccessURL,
		failureURL:      opts.FailureURL,
		pendingURL:      opts.PendingURL,
		notificationURL: opts.NotificationURL,
	}
}

func Get(ctx context.Context, r kv.Reader, id string) (*gobs.Payment, error) {
	p, err := kvutil.Get[gobs.Payment](ctx, r, paymentKey(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("payment not found")
		}
		return nil, err
	}
	return p, nil
}

// GetOwned hides other users' payments from non-admins.
func GetOwned(ctx context.Context, r kv.Reader, id, userID string, isAdmin bool) (*gobs.Payment, error) {
	p, err := Get(ctx, r, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && p.UserID != userID {
		return nil, fault.NotFoundf("payment not found")
	}
	return p, nil
}

// FindByExternalReference returns the payment recorded under the given
// provider external reference, if any.
func FindByExternalReference(ctx context.Context, r kv.Reader, ref string) (*gobs.Payment, error) {
	id, err := kvutil.GetString[string](ctx, r, refKey(ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fault.NotFoundf("payment not found")
		}
		return nil, err
	}
	return Get(ctx, r, id)
}

// ListForOrder returns an order's payments in id order.
func ListForOrder(ctx context.Context, r kv.Reader, orderID string) ([]*gobs.Payment, error) {
	var ps []*gobs.Payment
	begin, end := kvutil.PathRange(path.Join(orderKeyspace, orderID))
	collect := func(ctx context.Context, key, id string) error {
		p, err := Get(ctx, r, id)
		if err != nil {
			return err
		}
		ps = append(ps, p)
		return nil
	}
	if err := kvutil.AscendStrings(ctx, r, begin, end, collect); err != nil {
		return nil, err
	}
	return ps, nil
}

func save(ctx context.Context, rw kv.ReadWriter, p *gobs.Payment) error {
	p.UpdatedAt = time.Now().UTC()
	return kvutil.Set(ctx, rw, paymentKey(p.ID), p)
}

// savePending persists a payment and keeps the single-active-pending index
// in sync with its status.
func savePending(ctx context.Context, rw kv.ReadWriter, p *gobs.Payment) error {
	if p.Status == "pending" {
		if err := kvutil.SetString(ctx, rw, pendingKey(p.OrderID, p.Method), p.ID); err != nil {
			return err
		}
	} else {
		id, err := kvutil.GetString[string](ctx, rw, pendingKey(p.OrderID, p.Method))
		if err == nil && id == p.ID {
			if err := rw.Delete(ctx, pendingKey(p.OrderID, p.Method)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return save(ctx, rw, p)
}

type CreateArgs struct {
	OrderID string
	Method  string
	UserID  string
	IsAdmin bool

	IdempotencyKey string

	Currency         string
	ExpiresInMinutes int
}

func (args *CreateArgs) check() error {
	if args.Method != "bank_transfer" && args.Method != "mercadopago" {
		return fault.Validationf("unsupported payment method %q", args.Method)
	}
	if len(strings.TrimSpace(args.IdempotencyKey)) == 0 {
		return fault.Validationf("idempotency key is required")
	}
	if args.ExpiresInMinutes < 0 || args.ExpiresInMinutes > 1440 {
		return fault.Validationf("expires_in_minutes must be between 1 and 1440")
	}
	return nil
}

// Create makes a pending payment for a submitted order. Repeated calls with
// the same idempotency key return the first payment unchanged; a live
// pending payment for the same order and method is returned as-is when its
// amount and currency are compatible.
func (pr *Processor) Create(ctx context.Context, rw kv.ReadWriter, args *CreateArgs) (*gobs.Payment, error) {
	if err := args.check(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if _, err := ExpireReservations(ctx, rw, now); err != nil {
		return nil, err
	}

	if id, err := kvutil.GetString[string](ctx, rw, idempotencyKey(args.IdempotencyKey)); err == nil {
		p, err := Get(ctx, rw, id)
		if err != nil {
			return nil, err
		}
		if p.OrderID != args.OrderID {
			return nil, fault.Conflictf("idempotency key already used for a different order")
		}
		if p.Method != args.Method {
			return nil, fault.Conflictf("idempotency key already used for a different payment method")
		}
		if !args.IsAdmin && p.UserID != args.UserID {
			return nil, fault.NotFoundf("order not found")
		}
		return p, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	o, err := order.GetOwned(ctx, rw, args.OrderID, args.UserID, args.IsAdmin)
	if err != nil {
		return nil, err
	}
	if o.Status != "submitted" {
		return nil, fault.Validationf("order is not payable in status %q", o.Status)
	}
	if len(o.Items) == 0 {
		return nil, fault.Validationf("order has no items")
	}
	active, err := reserve.ActiveForOrder(ctx, rw, o.ID, now)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, fault.Validationf("order has no active stock reservations")
	}

	amount := o.TotalAmount.Round(2)
	if !amount.IsPositive() {
		return nil, fault.Validationf("order total must be positive")
	}
	currency := strings.ToUpper(args.Currency)
	if len(currency) == 0 {
		currency = strings.ToUpper(o.Currency)
	}

	if existing, err := pr.activePending(ctx, rw, o.ID, args.Method, now); err != nil {
		return nil, err
	} else if existing != nil {
		if !existing.Amount.Round(2).Equal(amount) || !strings.EqualFold(existing.Currency, currency) {
			return nil, fault.Conflictf("an active pending payment with different terms exists for this order")
		}
		return existing, nil
	}

	minutes := args.ExpiresInMinutes
	if minutes == 0 {
		minutes = DefaultExpiresInMinutes
	}

	p := &gobs.Payment{
		ID:             uuid.New().String(),
		OrderID:        o.ID,
		UserID:         o.UserID,
		Method:         args.Method,
		Status:         "pending",
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: args.IdempotencyKey,
		ExpiresAt:      now.Add(time.Duration(minutes) * time.Minute),
		CreatedAt:      now,
	}

	switch args.Method {
	case "bank_transfer":
		if err := attachBankInstructions(p); err != nil {
			return nil, err
		}
	case "mercadopago":
		if err := pr.attachPreference(ctx, rw, o, p); err != nil {
			return nil, err
		}
		if err := kvutil.SetString(ctx, rw, refKey(p.ExternalReference), p.ID); err != nil {
			return nil, err
		}
	}

	if err := kvutil.SetString(ctx, rw, idempotencyKey(args.IdempotencyKey), p.ID); err != nil {
		return nil, err
	}
	if err := kvutil.SetString(ctx, rw, orderIndexKey(o.ID, p.ID), p.ID); err != nil {
		return nil, err
	}
	if err := savePending(ctx, rw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// activePending returns the live pending payment for (order, method). A
// stale pending payment past its expiry is flipped to expired on the way.
func (pr *Processor) activePending(ctx context.Context, rw kv.ReadWriter, orderID, method string, now time.Time) (*gobs.Payment, error) {
	id, err := kvutil.GetString[string](ctx, rw, pendingKey(orderID, method))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	p, err := Get(ctx, rw, id)
	if err != nil {
		return nil, err
	}
	if p.Status != "pending" {
		return nil, nil
	}
	if !p.ExpiresAt.IsZero() && !p.ExpiresAt.After(now) {
		p.Status = "expired"
		if err := savePending(ctx, rw, p); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return p, nil
}

func attachBankInstructions(p *gobs.Payment) error {
	payload := map[string]any{
		"instructions": map[string]any{
			"alias":     "patitas.bigotes",
			"bank_name": "Banco Demo",
			"reference": fmt.Sprintf("ORDER-%s-PAY-%s", p.OrderID, p.ID),
			"amount":    p.Amount.InexactFloat64(),
			"currency":  p.Currency,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.ProviderPayload = string(data)
	return nil
}

func (pr *Processor) attachPreference(ctx context.Context, r kv.Reader, o *gobs.Order, p *gobs.Payment) error {
	if pr.provider == nil {
		return fault.New(fault.ProviderUnavailable, nil, "payment provider is not configured")
	}

	p.ExternalReference = fmt.Sprintf("mp-order-%s-pay-%s", o.ID, p.ID)

	req := &PreferenceRequest{
		ExternalReference: p.ExternalReference,
		NotificationURL:   pr.notificationURL,
		Expires:           true,
		DateOfExpiration:  p.ExpiresAt.Format(time.RFC3339),
		Metadata: map[string]any{
			"order_id":   o.ID,
			"payment_id": p.ID,
		},
	}
	if len(pr.successURL)+len(pr.failureURL)+len(pr.pendingURL) > 0 {
		req.BackURLs = &BackURLs{
			Success: pr.successURL,
			Failure: pr.failureURL,
			Pending: pr.pendingURL,
		}
	}
	for _, item := range o.Items {
		title := fmt.Sprintf("Item %s", item.VariantID)
		if product, err := catalog.GetProduct(ctx, r, item.ProductID); err == nil {
			title = product.Name
		}
		req.Items = append(req.Items, &PreferenceItem{
			Title:      title,
			Quantity:   item.Quantity,
			CurrencyID: p.Currency,
			UnitPrice:  item.FinalUnitPrice.InexactFloat64(),
		})
	}

	pref, err := pr.provider.CreatePreference(ctx, req, "mp-preference-"+p.IdempotencyKey)
	if err != nil {
		return err
	}

	checkoutURL := pref.InitPoint
	if pr.env == "sandbox" && len(pref.SandboxInitPoint) != 0 {
		checkoutURL = pref.SandboxInitPoint
	}
	if len(checkoutURL) == 0 {
		checkoutURL = pref.SandboxInitPoint
	}

	payload := map[string]any{
		"checkout": map[string]any{
			"preference_id":      pref.ID,
			"checkout_url":       checkoutURL,
			"init_point":         pref.InitPoint,
			"sandbox_init_point": pref.SandboxInitPoint,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.ProviderPreferenceID = pref.ID
	p.ProviderStatus = "preference_created"
	p.ProviderPayload = string(data)
	return nil
}

// roundEqual compares two amounts at two decimal places.
func roundEqual(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}
