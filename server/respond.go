// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/bvk/salesd/api"
	"github.com/bvk/salesd/fault"
)

// maxBodyBytes bounds request bodies; nothing on this surface is larger.
const maxBodyBytes = 1 << 20

type checker interface {
	Check() error
}

// decode reads a JSON request body rejecting unknown fields, then runs the
// request's own Check.
func decode[T any](r *http.Request) (*T, error) {
	req := new(T)
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return nil, fault.Validationf("invalid request body: %v", err)
	}
	if c, ok := any(req).(checker); ok {
		if err := c.Check(); err != nil {
			return nil, fault.Validationf("%v", err)
		}
	}
	return req, nil
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&api.DataResponse{Data: data}); err != nil {
		slog.Error("could not encode response body", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	detail := fault.MessageOf(err)
	if status == http.StatusInternalServerError {
		detail = "internal server error"
	}
	if err := json.NewEncoder(w).Encode(&api.ErrorResponse{Detail: detail}); err != nil {
		slog.Error("could not encode error response body", "err", err)
	}
}

// statusOf maps error kinds to HTTP status codes. Index keys missing from
// the db surface as os.ErrNotExist from lower layers; treat them as 404.
func statusOf(err error) int {
	if errors.Is(err, os.ErrNotExist) {
		return http.StatusNotFound
	}
	switch fault.KindOf(err) {
	case fault.NotFound:
		return http.StatusNotFound
	case fault.Validation, fault.ProviderValidation:
		return http.StatusBadRequest
	case fault.Conflict:
		return http.StatusConflict
	case fault.Unauthorized:
		return http.StatusUnauthorized
	case fault.Forbidden:
		return http.StatusForbidden
	case fault.RateLimited:
		return http.StatusTooManyRequests
	case fault.ProviderTimeout:
		return http.StatusGatewayTimeout
	case fault.ProviderUnavailable:
		return http.StatusServiceUnavailable
	case fault.ProviderAuth:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func errBadQuery(name string) error {
	return fault.Validationf("invalid query parameter %q", name)
}

// clientIP picks the first x-forwarded-for entry when present, otherwise
// the connection's remote address.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("x-forwarded-for"); len(v) != 0 {
		first, _, _ := strings.Cut(v, ",")
		if ip := strings.TrimSpace(first); len(ip) != 0 {
			return ip
		}
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
