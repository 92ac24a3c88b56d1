// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"io"
	"net/http"

	"github.com/bvk/salesd/api"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/payment"
	"github.com/bvkgo/kv"
)

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	orderID := r.PathValue("id")

	key := r.Header.Get("Idempotency-Key")
	if len(key) == 0 {
		writeError(w, fault.Validationf("Idempotency-Key header is required"))
		return
	}

	req, err := decode[api.CreatePaymentRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	args := &payment.CreateArgs{
		OrderID:          orderID,
		Method:           req.Method,
		UserID:           u.ID,
		IsAdmin:          u.IsAdmin,
		IdempotencyKey:   key,
		Currency:         req.Currency,
		ExpiresInMinutes: req.ExpiresInMinutes,
	}

	var p *gobs.Payment
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := s.processor.Create(ctx, rw, args)
		if err != nil {
			return err
		}
		p = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toAPIPayment(p))
}

func (s *Server) handleListOrderPayments(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	orderID := r.PathValue("id")

	var ps []*gobs.Payment
	list := func(ctx context.Context, rd kv.Reader) error {
		if _, err := order.GetOwned(ctx, rd, orderID, u.ID, u.IsAdmin); err != nil {
			return err
		}
		vs, err := payment.ListForOrder(ctx, rd, orderID)
		if err != nil {
			return err
		}
		ps = vs
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, list); err != nil {
		writeError(w, err)
		return
	}
	out := make([]*api.Payment, 0, len(ps))
	for _, p := range ps {
		out = append(out, toAPIPayment(p))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	id := r.PathValue("id")

	var p *gobs.Payment
	get := func(ctx context.Context, rd kv.Reader) error {
		v, err := payment.GetOwned(ctx, rd, id, u.ID, u.IsAdmin)
		if err != nil {
			return err
		}
		p = v
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, get); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAPIPayment(p))
}

func (s *Server) handleMercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, fault.Validationf("could not read request body"))
		return
	}

	result, err := s.reconciler.Process(r.Context(),
		r.Header.Get("x-signature"), r.Header.Get("x-request-id"), body)
	if err != nil {
		if fault.KindOf(err) == fault.Unauthorized {
			writeError(w, err)
			return
		}
		// Unexpected failures ask the provider to retry later.
		writeError(w, fault.New(fault.ProviderUnavailable, err, "mercadopago webhook processing failed"))
		return
	}

	resp := &api.WebhookResponse{Processed: result.Processed, Reason: result.Reason}
	if result.Payment != nil {
		resp.Payment = toAPIPayment(result.Payment)
		if result.Processed && result.Payment.Status == "paid" {
			s.notifyPaidOrder(r.Context(), result.Payment.OrderID)
		}
	}
	writeData(w, http.StatusOK, resp)
}
