// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bvk/salesd/api"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvk/salesd/payment"
	"github.com/bvk/salesd/reserve"
	"github.com/bvk/salesd/users"
	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"
)

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	var o *gobs.Order
	get := func(ctx context.Context, rw kv.ReadWriter) error {
		v, _, err := order.GetOrCreateDraft(ctx, rw, u.ID, s.cfg.Currency)
		if err != nil {
			return err
		}
		o = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), get); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAPIOrder(o))
}

func (s *Server) handleAddDraftItem(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	req, err := decode[api.AddOrderItemRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	var o *gobs.Order
	add := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := order.AddItem(ctx, rw, u.ID, s.cfg.Currency, req.VariantID, req.Quantity)
		if err != nil {
			return err
		}
		o = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), add); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAPIOrder(o))
}

func (s *Server) handleRemoveDraftItem(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	itemID := r.PathValue("id")

	var o *gobs.Order
	remove := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := order.RemoveItem(ctx, rw, u.ID, itemID)
		if err != nil {
			return err
		}
		o = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), remove); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAPIOrder(o))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	id := r.PathValue("id")

	var o *gobs.Order
	get := func(ctx context.Context, rd kv.Reader) error {
		v, err := order.GetOwned(ctx, rd, id, u.ID, u.IsAdmin)
		if err != nil {
			return err
		}
		o = v
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, get); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAPIOrder(o))
}

func (s *Server) handleChangeOrderStatus(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	id := r.PathValue("id")
	req, err := decode[api.ChangeOrderStatusRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	// A transition to paid is a manual payment confirmation in disguise.
	if req.Status == "paid" {
		if len(req.PaymentRef) == 0 || req.PaidAmount == nil {
			writeError(w, fault.Validationf("payment_ref and paid_amount are required to mark an order paid"))
			return
		}
		s.confirmManual(w, r, u, id, req.PaymentRef, req.PaidAmount)
		return
	}

	var o *gobs.Order
	change := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := order.ChangeStatus(ctx, rw, u.ID, u.IsAdmin, id, req.Status)
		if err != nil {
			return err
		}
		o = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), change); err != nil {
		writeError(w, err)
		return
	}
	if o.Status == "cancelled" {
		s.publishNotice("order_cancelled", o)
	}
	writeData(w, http.StatusOK, toAPIOrder(o))
}

func (s *Server) handlePayOrder(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	id := r.PathValue("id")
	req, err := decode[api.PayOrderRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.confirmManual(w, r, u, id, req.PaymentRef, req.PaidAmount)
}

func (s *Server) confirmManual(w http.ResponseWriter, r *http.Request, u *gobs.User, orderID, paymentRef string, paidAmount *decimal.Decimal) {
	var o *gobs.Order
	confirm := func(ctx context.Context, rw kv.ReadWriter) error {
		_, v, err := payment.ConfirmManual(ctx, rw, orderID, u.ID, u.IsAdmin, paymentRef, *paidAmount)
		if err != nil {
			return err
		}
		o = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), confirm); err != nil {
		writeError(w, err)
		return
	}
	s.publishNotice("order_paid", o)
	writeData(w, http.StatusOK, toAPIOrder(o))
}

func (s *Server) handleListOrderReservations(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	id := r.PathValue("id")

	var rs []*gobs.StockReservation
	list := func(ctx context.Context, rd kv.Reader) error {
		if _, err := order.GetOwned(ctx, rd, id, u.ID, u.IsAdmin); err != nil {
			return err
		}
		vs, err := reserve.ListForOrder(ctx, rd, id)
		if err != nil {
			return err
		}
		rs = vs
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, list); err != nil {
		writeError(w, err)
		return
	}
	out := make([]*api.StockReservation, 0, len(rs))
	for _, v := range rs {
		out = append(out, toAPIReservation(v))
	}
	writeData(w, http.StatusOK, out)
}

// checkout builds a submitted order for a resolved customer in one
// transaction. Both guest checkout and the admin manual flow use it.
func (s *Server) checkout(ctx context.Context, req *api.GuestCheckoutRequest) (*gobs.Order, *gobs.User, error) {
	var o *gobs.Order
	var customer *gobs.User
	run := func(ctx context.Context, rw kv.ReadWriter) error {
		u, _, err := users.GetOrCreateByContact(ctx, rw, &users.Contact{
			Email:     req.Customer.Email,
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Phone:     req.Customer.Phone,
			DNI:       req.Customer.DNI,
		})
		if err != nil {
			return err
		}
		customer = u

		var draft *gobs.Order
		for _, item := range req.Items {
			v, err := order.AddItem(ctx, rw, u.ID, s.cfg.Currency, item.VariantID, item.Quantity)
			if err != nil {
				return err
			}
			draft = v
		}
		if draft == nil {
			return fault.Validationf("checkout requires at least one item")
		}
		if err := order.Submit(ctx, rw, draft, time.Now().UTC()); err != nil {
			return err
		}
		o = draft
		return nil
	}
	if err := s.withReadWriter(ctx, run); err != nil {
		return nil, nil, err
	}
	return o, customer, nil
}

func (s *Server) handleGuestCheckout(w http.ResponseWriter, r *http.Request) {
	req, err := decode[api.GuestCheckoutRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.gate.Allow(time.Now(), clientIP(r), req.Customer.Email, req.Website); err != nil {
		writeError(w, err)
		return
	}

	o, customer, err := s.checkout(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishNotice("order_submitted", o)
	writeData(w, http.StatusCreated, &api.GuestCheckoutResponse{
		Order:    toAPIOrder(o),
		Customer: toAPIUser(customer),
	})
}

func (s *Server) handleManualCheckout(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	req, err := decode[api.GuestCheckoutRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	o, customer, err := s.checkout(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishNotice("order_submitted", o)
	writeData(w, http.StatusCreated, &api.GuestCheckoutResponse{
		Order:    toAPIOrder(o),
		Customer: toAPIUser(customer),
	})
}

func (s *Server) handleExpireReservations(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	count, err := s.runExpireSweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, &api.ExpireReservationsResponse{ExpiredCount: count})
}
