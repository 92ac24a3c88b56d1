// Copyright (c) 2025 BVK Chaitanya

// Package setup implements subcommands that configure external service
// credentials for the daemon.
package setup

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/bvk/salesd/cli"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/mercadopago"
)

type MercadoPago struct {
	envFile     string
	skipTesting bool

	accessToken   string
	env           string
	webhookSecret string

	successURL      string
	failureURL      string
	pendingURL      string
	notificationURL string
}

func (c *MercadoPago) Synopsis() string {
	return "Setup configures Mercado Pago API parameters"
}

func (c *MercadoPago) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("mercadopago", flag.ContinueOnError)
	fset.StringVar(&c.envFile, "env-file", "salesd.env", "name of the env file in the user's home directory")
	fset.StringVar(&c.accessToken, "access-token", "", "Mercado Pago API access token")
	fset.StringVar(&c.env, "env", "sandbox", "Mercado Pago environment (sandbox or production)")
	fset.StringVar(&c.webhookSecret, "webhook-secret", "", "shared secret for webhook signature checks")
	fset.StringVar(&c.successURL, "success-url", "", "redirect URL after a successful checkout")
	fset.StringVar(&c.failureURL, "failure-url", "", "redirect URL after a failed checkout")
	fset.StringVar(&c.pendingURL, "pending-url", "", "redirect URL for a pending checkout")
	fset.StringVar(&c.notificationURL, "notification-url", "", "webhook notification URL")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return fset, cli.CmdFunc(c.run)
}

func (c *MercadoPago) CommandHelp() string {
	return `

Command "mercadopago" saves Mercado Pago API parameters into the env file in
the user's home directory. The daemon loads this file on startup, so values
configured here become the MERCADOPAGO_* environment variables.

  $ salesd setup mercadopago --access-token=APP_USR-... --webhook-secret=...

`
}

func (c *MercadoPago) run(ctx context.Context, args []string) error {
	if len(c.accessToken) == 0 {
		return fmt.Errorf("access-token cannot be empty")
	}
	if c.env != "sandbox" && c.env != "production" {
		return fmt.Errorf("env must be sandbox or production")
	}
	if len(c.webhookSecret) == 0 {
		return fmt.Errorf("webhook-secret cannot be empty")
	}

	if !c.skipTesting {
		client, err := mercadopago.New(c.accessToken, nil)
		if err != nil {
			return err
		}
		// A fetch of a bogus payment id validates the access token; a bad
		// token fails with an authorization error instead of not-found.
		if _, err := client.GetPayment(ctx, "0"); err != nil {
			if fault.KindOf(err) == fault.ProviderAuth {
				return fmt.Errorf("could not validate access token: %w", err)
			}
		}
	}

	values := map[string]string{
		"MERCADOPAGO_ACCESS_TOKEN":     c.accessToken,
		"MERCADOPAGO_ENV":              c.env,
		"MERCADOPAGO_WEBHOOK_SECRET":   c.webhookSecret,
		"MERCADOPAGO_SUCCESS_URL":      c.successURL,
		"MERCADOPAGO_FAILURE_URL":      c.failureURL,
		"MERCADOPAGO_PENDING_URL":      c.pendingURL,
		"MERCADOPAGO_NOTIFICATION_URL": c.notificationURL,
	}
	return updateEnvFile(c.envFile, values)
}

// updateEnvFile rewrites NAME=VALUE assignments in the env file in the
// user's home directory, keeping unrelated lines as they are. Keys with
// empty values are left untouched.
func updateEnvFile(filename string, values map[string]string) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	u, err := user.Current()
	if err != nil {
		return err
	}
	if len(u.HomeDir) == 0 {
		return fmt.Errorf("could not determine current user's home directory")
	}
	fpath := filepath.Join(u.HomeDir, filename)

	var lines []string
	if data, err := os.ReadFile(fpath); err == nil {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	seen := make(map[string]bool)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		key, _, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		if v, found := values[key]; found && len(v) != 0 {
			lines[i] = fmt.Sprintf("%s=%s", key, v)
			seen[key] = true
		}
	}
	for _, key := range []string{
		"MERCADOPAGO_ACCESS_TOKEN",
		"MERCADOPAGO_ENV",
		"MERCADOPAGO_WEBHOOK_SECRET",
		"MERCADOPAGO_SUCCESS_URL",
		"MERCADOPAGO_FAILURE_URL",
		"MERCADOPAGO_PENDING_URL",
		"MERCADOPAGO_NOTIFICATION_URL",
	} {
		if v := values[key]; len(v) != 0 && !seen[key] {
			lines = append(lines, fmt.Sprintf("%s=%s", key, v))
		}
	}

	out := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(fpath, []byte(out), os.FileMode(0600))
}
