// Copyright (c) 2025 BVK Chaitanya

// Package server implements the HTTP surface of the sales daemon. Handlers
// decode api package requests, run the domain operations inside database
// transactions and translate domain errors into status codes uniformly.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bvk/salesd/abuse"
	"github.com/bvk/salesd/api"
	"github.com/bvk/salesd/auth"
	"github.com/bvk/salesd/config"
	"github.com/bvk/salesd/ctxutil"
	"github.com/bvk/salesd/payment"
	"github.com/bvk/salesd/telegram"
	"github.com/bvk/salesd/webhook"
	"github.com/bvkgo/kv"
	"github.com/dgraph-io/badger/v4"
	"github.com/visvasity/topic"
)

// reaperInterval is how often the reservation expiry sweep runs in the
// background.
const reaperInterval = 5 * time.Minute

type Options struct {
	// NoReaper disables the background sweep. Tests drive the sweep
	// explicitly instead.
	NoReaper bool
}

type Server struct {
	cg ctxutil.CloseGroup

	db kv.Database

	cfg *config.Config

	opts Options

	tokens     *auth.TokenService
	processor  *payment.Processor
	reconciler *webhook.Reconciler
	gate       *abuse.Gate

	noticeTopic *topic.Topic[*OrderNotice]

	telegramClient *telegram.Client
}

// New wires up the server from its parts. The telegram client is optional;
// without it order notices are only published on the in-process topic.
func New(db kv.Database, cfg *config.Config, provider payment.Provider, tc *telegram.Client, opts *Options) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if opts == nil {
		opts = new(Options)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	processor := payment.NewProcessor(provider, &payment.ProcessorOptions{
		Env:             cfg.MercadoPagoEnv,
		SuccessURL:      cfg.MercadoPagoSuccessURL,
		FailureURL:      cfg.MercadoPagoFailureURL,
		PendingURL:      cfg.MercadoPagoPendingURL,
		NotificationURL: cfg.MercadoPagoNotificationURL,
	})

	s := &Server{
		db:             db,
		cfg:            cfg,
		opts:           *opts,
		tokens:         tokens,
		processor:      processor,
		reconciler:     webhook.NewReconciler(db, cfg.MercadoPagoWebhookSecret, provider, processor),
		gate:           abuse.NewGate(),
		noticeTopic:    topic.New[*OrderNotice](),
		telegramClient: tc,
	}
	return s, nil
}

// Start launches the background workers.
func (s *Server) Start(ctx context.Context) error {
	if !s.opts.NoReaper {
		s.cg.Go(s.goExpireReservations)
	}
	if s.telegramClient != nil {
		if err := s.startTelegram(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) Close() error {
	s.cg.Close()
	s.noticeTopic.Close()
	return nil
}

func (s *Server) goExpireReservations(ctx context.Context) {
	for ctxutil.Sleep(ctx, reaperInterval); ctx.Err() == nil; ctxutil.Sleep(ctx, reaperInterval) {
		// Failed sweeps just wait for the next tick; reservations expire by
		// wall clock, so a late sweep is harmless.
		if _, err := s.runExpireSweep(ctx); err != nil {
			slog.Warn("reservation expiry sweep failed (ignored)", "err", err)
		}
	}
}

func (s *Server) runExpireSweep(ctx context.Context) (int, error) {
	var count int
	sweep := func(ctx context.Context, rw kv.ReadWriter) error {
		n, err := payment.ExpireReservations(ctx, rw, time.Now().UTC())
		if err != nil {
			return err
		}
		count = n
		return nil
	}
	if err := s.withReadWriter(ctx, sweep); err != nil {
		return 0, err
	}
	return count, nil
}

// withReadWriter runs one serializable transaction, retrying a few times on
// commit conflicts so that concurrent checkouts do not surface as errors.
func (s *Server) withReadWriter(ctx context.Context, f func(ctx context.Context, rw kv.ReadWriter) error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = kv.WithReadWriter(ctx, s.db, f); err == nil || !errors.Is(err, badger.ErrConflict) {
			return err
		}
		ctxutil.Sleep(ctx, time.Duration(attempt+1)*10*time.Millisecond)
	}
	return err
}

// HandlerMap returns all route handlers keyed by method-qualified mux
// patterns.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		"GET " + api.HealthPath: http.HandlerFunc(s.handleHealth),

		"POST " + api.AuthLoginPath:   http.HandlerFunc(s.handleLogin),
		"POST " + api.AuthRefreshPath: http.HandlerFunc(s.handleRefresh),
		"POST " + api.AuthLogoutPath:  http.HandlerFunc(s.handleLogout),

		"POST " + api.UsersPath:        http.HandlerFunc(s.handleCreateUser),
		"GET " + api.UsersSearchPath:   s.admin(s.handleSearchUsers),
		"POST " + api.UsersResolvePath: s.admin(s.handleResolveUser),
		"POST " + api.TurnsPath:        s.authed(s.handleCreateTurn),

		"GET " + api.CategoriesPath:  http.HandlerFunc(s.handleListCategories),
		"POST " + api.CategoriesPath: s.admin(s.handleCreateCategory),

		"GET " + api.ProductsPath:                     http.HandlerFunc(s.handleListProducts),
		"GET " + api.ProductsPath + "/{id}":           http.HandlerFunc(s.handleGetProduct),
		"POST " + api.ProductsPath:                    s.admin(s.handleCreateProduct),
		"PUT " + api.ProductsPath + "/{id}":           s.admin(s.handleUpdateProduct),
		"PATCH " + api.ProductsPath + "/{id}":         s.admin(s.handleUpdateProduct),
		"DELETE " + api.ProductsPath + "/{id}":        s.admin(s.handleDeleteProduct),
		"POST " + api.ProductsPath + "/{id}/variants": s.admin(s.handleCreateVariant),
		"POST /variants/{id}/stock":                   s.admin(s.handleAddVariantStock),

		"GET " + api.DiscountsPath:              s.admin(s.handleListDiscounts),
		"POST " + api.DiscountsPath:             s.admin(s.handleCreateDiscount),
		"PUT " + api.DiscountsPath + "/{id}":    s.admin(s.handleUpdateDiscount),
		"DELETE " + api.DiscountsPath + "/{id}": s.admin(s.handleDeleteDiscount),

		"GET " + api.OrdersDraftPath:                    s.authed(s.handleGetDraft),
		"POST " + api.OrdersDraftPath + "/items":        s.authed(s.handleAddDraftItem),
		"DELETE " + api.OrdersDraftPath + "/items/{id}": s.authed(s.handleRemoveDraftItem),

		"GET " + api.OrdersPath + "/{id}":              s.authed(s.handleGetOrder),
		"PATCH " + api.OrdersPath + "/{id}/status":     s.authed(s.handleChangeOrderStatus),
		"POST " + api.OrdersPath + "/{id}/pay":         s.authed(s.handlePayOrder),
		"POST " + api.OrdersPath + "/{id}/payments":    s.authed(s.handleCreatePayment),
		"GET " + api.OrdersPath + "/{id}/payments":     s.authed(s.handleListOrderPayments),
		"GET " + api.OrdersPath + "/{id}/reservations": s.authed(s.handleListOrderReservations),

		"GET " + api.PaymentsPath + "/{id}":  s.authed(s.handleGetPayment),
		"POST " + api.MercadoPagoWebhookPath: http.HandlerFunc(s.handleMercadoPagoWebhook),

		"POST " + api.CheckoutGuestPath: http.HandlerFunc(s.handleGuestCheckout),
		"POST " + api.OrdersManualPath:  s.admin(s.handleManualCheckout),
		"POST " + api.AdminExpirePath:   s.admin(s.handleExpireReservations),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, &api.HealthResponse{Status: "ok"})
}
