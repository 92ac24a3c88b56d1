// Copyright (c) 2025 BVK Chaitanya

// Package config loads daemon configuration from the process environment.
// The env file loader in the envfile package runs before this, so values can
// come from a local dotenv style file as well.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// JWT signing parameters for access and refresh tokens.
	JWTSecret          string
	JWTIssuer          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// Mercado Pago provider parameters.
	MercadoPagoAccessToken     string
	MercadoPagoEnv             string
	MercadoPagoTimeout         time.Duration
	MercadoPagoSuccessURL      string
	MercadoPagoFailureURL      string
	MercadoPagoPendingURL      string
	MercadoPagoNotificationURL string
	MercadoPagoWebhookSecret   string

	// Currency is the default order currency code.
	Currency string
}

func FromEnv() (*Config, error) {
	c := &Config{
		JWTIssuer:                  getenv("SALESD_JWT_ISSUER", "salesd"),
		JWTSecret:                  os.Getenv("SALESD_JWT_SECRET"),
		MercadoPagoAccessToken:     os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
		MercadoPagoEnv:             getenv("MERCADOPAGO_ENV", "sandbox"),
		MercadoPagoSuccessURL:      os.Getenv("MERCADOPAGO_SUCCESS_URL"),
		MercadoPagoFailureURL:      os.Getenv("MERCADOPAGO_FAILURE_URL"),
		MercadoPagoPendingURL:      os.Getenv("MERCADOPAGO_PENDING_URL"),
		MercadoPagoNotificationURL: os.Getenv("MERCADOPAGO_NOTIFICATION_URL"),
		MercadoPagoWebhookSecret:   os.Getenv("MERCADOPAGO_WEBHOOK_SECRET"),
		Currency:                   getenv("SALESD_CURRENCY", "ARS"),
	}

	mins, err := getint("SALESD_ACCESS_TOKEN_EXPIRE_MINUTES", 0)
	if err != nil {
		return nil, err
	}
	c.AccessTokenExpiry = time.Duration(mins) * time.Minute

	days, err := getint("SALESD_REFRESH_TOKEN_EXPIRE_DAYS", 30)
	if err != nil {
		return nil, err
	}
	c.RefreshTokenExpiry = time.Duration(days) * 24 * time.Hour

	secs, err := getint("MERCADOPAGO_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	c.MercadoPagoTimeout = time.Duration(secs) * time.Second

	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Check() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("SALESD_JWT_SECRET is required")
	}
	if c.AccessTokenExpiry <= 0 {
		return fmt.Errorf("SALESD_ACCESS_TOKEN_EXPIRE_MINUTES must be a positive integer")
	}
	if c.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("SALESD_REFRESH_TOKEN_EXPIRE_DAYS must be a positive integer")
	}
	if len(c.MercadoPagoAccessToken) == 0 {
		return fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required")
	}
	if c.MercadoPagoEnv != "sandbox" && c.MercadoPagoEnv != "production" {
		return fmt.Errorf("MERCADOPAGO_ENV must be sandbox or production")
	}
	if c.MercadoPagoTimeout <= 0 {
		return fmt.Errorf("MERCADOPAGO_TIMEOUT_SECONDS must be a positive integer")
	}
	if len(c.MercadoPagoWebhookSecret) == 0 {
		return fmt.Errorf("MERCADOPAGO_WEBHOOK_SECRET is required")
	}
	if len(c.Currency) == 0 {
		return fmt.Errorf("SALESD_CURRENCY cannot be empty")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); len(v) != 0 {
		return v
	}
	return def
}

func getint(key string, def int) (int, error) {
	v := os.Getenv(key)
	if len(v) == 0 {
		if def == 0 {
			return 0, fmt.Errorf("%s is required", key)
		}
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
