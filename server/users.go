// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/bvk/salesd/api"
	"github.com/bvk/salesd/auth"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/users"
	"github.com/bvkgo/kv"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decode[api.LoginRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	var access, refresh *auth.Token
	login := func(ctx context.Context, rw kv.ReadWriter) error {
		a, f, err := s.tokens.Login(ctx, rw, req.Email, req.Password)
		if err != nil {
			return err
		}
		access, refresh = a, f
		return nil
	}
	if err := s.withReadWriter(r.Context(), login); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, &api.TokenPairResponse{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "bearer",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var access, refresh *auth.Token
	rotate := func(ctx context.Context, rw kv.ReadWriter) error {
		a, f, err := s.tokens.Refresh(ctx, rw, token)
		if err != nil {
			return err
		}
		access, refresh = a, f
		return nil
	}
	if err := s.withReadWriter(r.Context(), rotate); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, &api.TokenPairResponse{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "bearer",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}
	logout := func(ctx context.Context, rw kv.ReadWriter) error {
		return s.tokens.Logout(ctx, rw, token)
	}
	if err := s.withReadWriter(r.Context(), logout); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, &api.LogoutResponse{LoggedOut: true})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := decode[api.CreateUserRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	var u *gobs.User
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := users.Create(ctx, rw, &users.CreateArgs{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			DNI:       req.DNI,
			Password:  req.Password,
		})
		if err != nil {
			return err
		}
		u = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toAPIUser(u))
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	q := r.URL.Query()
	filter := &users.SearchFilter{
		Email:     q.Get("email"),
		FirstName: q.Get("first_name"),
		LastName:  q.Get("last_name"),
		Phone:     q.Get("phone"),
		DNI:       q.Get("dni"),
	}
	if v := q.Get("limit"); len(v) != 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, errBadQuery("limit"))
			return
		}
		filter.Limit = n
	}

	var found []*gobs.User
	search := func(ctx context.Context, rd kv.Reader) error {
		vs, err := users.Search(ctx, rd, filter)
		if err != nil {
			return err
		}
		found = vs
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, search); err != nil {
		writeError(w, err)
		return
	}

	out := make([]*api.User, 0, len(found))
	for _, u := range found {
		out = append(out, toAPIUser(u))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleResolveUser(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	req, err := decode[api.ResolveUserRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	var u *gobs.User
	var created bool
	resolve := func(ctx context.Context, rw kv.ReadWriter) error {
		v, fresh, err := users.GetOrCreateByContact(ctx, rw, &users.Contact{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			DNI:       req.DNI,
		})
		if err != nil {
			return err
		}
		u, created = v, fresh
		return nil
	}
	if err := s.withReadWriter(r.Context(), resolve); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, &api.ResolveUserResponse{User: toAPIUser(u), Created: created})
}

func (s *Server) handleCreateTurn(w http.ResponseWriter, r *http.Request, u *gobs.User) {
	req, err := decode[api.CreateTurnRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	var scheduledAt time.Time
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}

	var t *gobs.Turn
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := users.CreateTurn(ctx, rw, u.ID, scheduledAt, req.Notes)
		if err != nil {
			return err
		}
		t = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toAPITurn(t))
}
