// Copyright (c) 2025 BVK Chaitanya

// Package mercadopago is a thin REST client for the Mercado Pago checkout
// preference and payment lookup endpoints.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bvk/salesd/ctxutil"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/payment"
	"golang.org/x/time/rate"
)

const baseURL = "https://api.mercadopago.com"

const maxAttempts = 3

type Options struct {
	BaseURL string

	HttpClientTimeout time.Duration
}

func (v *Options) setDefaults() {
	if len(v.BaseURL) == 0 {
		v.BaseURL = baseURL
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
}

type Client struct {
	opts Options

	accessToken string

	client *http.Client

	limiter *rate.Limiter
}

// New creates a Mercado Pago REST client with the given access token.
func New(accessToken string, opts *Options) (*Client, error) {
	if len(accessToken) == 0 {
		return nil, fmt.Errorf("mercadopago access token cannot be empty")
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("could not parse mercadopago base url: %w", err)
	}

	c := &Client{
		opts:        *opts,
		accessToken: accessToken,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(25, 1),
	}
	return c, nil
}

var _ payment.Provider = &Client{}

// CreatePreference creates a checkout preference. The idempotency key is
// forwarded so that a retried create cannot produce a second preference.
func (c *Client) CreatePreference(ctx context.Context, req *payment.PreferenceRequest, idempotencyKey string) (*payment.Preference, error) {
	pref := new(payment.Preference)
	if err := c.postJSON(ctx, "/checkout/preferences", idempotencyKey, req, pref); err != nil {
		return nil, err
	}
	if len(pref.ID) == 0 {
		return nil, fault.New(fault.ProviderValidation, nil, "mercadopago preference response has no id")
	}
	if len(pref.InitPoint) == 0 && len(pref.SandboxInitPoint) == 0 {
		return nil, fault.New(fault.ProviderValidation, nil, "mercadopago preference response has no init point")
	}
	return pref, nil
}

// GetPayment fetches the authoritative payment document, keeping the raw
// response body alongside the decoded fields.
func (c *Client) GetPayment(ctx context.Context, id string) (*payment.ProviderPayment, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, err
	}
	pp := new(payment.ProviderPayment)
	if err := json.Unmarshal(body, pp); err != nil {
		return nil, fault.New(fault.ProviderUnavailable, err, "could not decode mercadopago payment response")
	}
	pp.Raw = json.RawMessage(body)
	return pp, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, idempotencyKey string, request, resultPtr any) error {
	payload, err := json.Marshal(request)
	if err != nil {
		slog.Error("could not marshal post request body to json", "err", err)
		return err
	}
	body, err := c.doJSON(ctx, http.MethodPost, endpoint, idempotencyKey, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, resultPtr); err != nil {
		return fault.New(fault.ProviderUnavailable, err, "could not decode mercadopago response")
	}
	return nil
}

// doJSON performs one request with the retry policy: transient failures are
// retried up to maxAttempts times with a linearly growing backoff.
func (c *Client) doJSON(ctx context.Context, method, endpoint, idempotencyKey string, payload []byte) ([]byte, error) {
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			ctxutil.Sleep(ctx, time.Duration(attempt-1)*200*time.Millisecond)
			if ctx.Err() != nil {
				return nil, context.Cause(ctx)
			}
		}
		body, retryable, err := c.doOnce(ctx, method, endpoint, idempotencyKey, payload)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		last = err
	}
	return nil, last
}

func (c *Client) doOnce(ctx context.Context, method, endpoint, idempotencyKey string, payload []byte) (_ []byte, retryable bool, _ error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+endpoint, reqBody)
	if err != nil {
		slog.Error("could not create http request with context", "endpoint", endpoint, "err", err)
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(idempotencyKey) != 0 {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, false, err
		}
		kind := fault.ProviderUnavailable
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			kind = fault.ProviderTimeout
		}
		slog.Warn("mercadopago request failed", "method", method, "endpoint", endpoint, "err", err)
		return nil, true, fault.New(kind, err, "mercadopago request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("could not read mercadopago response body", "err", err)
		return nil, true, fault.New(fault.ProviderUnavailable, err, "could not read mercadopago response")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, false, nil
	}

	slog.Warn("mercadopago request is unsuccessful", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
	kind, retryable := classifyStatus(resp.StatusCode)
	return nil, retryable, fault.New(kind, nil, "mercadopago returned %d: %s", resp.StatusCode, errorDetail(body))
}

func classifyStatus(code int) (kind fault.Kind, retryable bool) {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fault.ProviderAuth, false
	case code == http.StatusRequestTimeout:
		return fault.ProviderTimeout, true
	case code == http.StatusTooManyRequests:
		return fault.ProviderUnavailable, true
	case code >= 500:
		return fault.ProviderUnavailable, true
	default:
		return fault.ProviderValidation, false
	}
}

// errorDetail extracts the human readable message from a provider error
// body, falling back to a truncated raw body.
func errorDetail(body []byte) string {
	var doc struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &doc); err == nil {
		if len(doc.Message) != 0 {
			return doc.Message
		}
		if len(doc.Error) != 0 {
			return doc.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
