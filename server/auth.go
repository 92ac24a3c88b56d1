// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvkgo/kv"
)

func bearerToken(r *http.Request) (string, error) {
	value := r.Header.Get("Authorization")
	if len(value) == 0 {
		return "", fault.Unauthorizedf("missing authorization header")
	}
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || len(strings.TrimSpace(token)) == 0 {
		return "", fault.Unauthorizedf("invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}

// authenticate resolves the bearer access token to an active user.
func (s *Server) authenticate(r *http.Request) (*gobs.User, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	var u *gobs.User
	lookup := func(ctx context.Context, rd kv.Reader) error {
		v, err := s.tokens.Authenticate(ctx, rd, token)
		if err != nil {
			return err
		}
		u = v
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, lookup); err != nil {
		return nil, err
	}
	return u, nil
}

type userHandler func(w http.ResponseWriter, r *http.Request, u *gobs.User)

// authed wraps a handler with bearer token authentication.
func (s *Server) authed(h userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		h(w, r, u)
	})
}

// admin additionally requires the authenticated user to be an admin.
func (s *Server) admin(h userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if !u.IsAdmin {
			writeError(w, fault.Forbiddenf("admin access required"))
			return
		}
		h(w, r, u)
	})
}
