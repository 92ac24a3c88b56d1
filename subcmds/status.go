// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/bvk/salesd/cli"
	"github.com/bvk/salesd/subcmds/cmdutil"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Synopsis() string {
	return "Status reports whether the salesd daemon is running"
}

func (c *Status) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	client := c.HttpClient()

	pid, err := c.getText(ctx, client, "/pid")
	if err != nil {
		return fmt.Errorf("salesd is not running: %w", err)
	}

	health, err := c.getText(ctx, client, "/health")
	if err != nil {
		return fmt.Errorf("salesd process %s is up, but not healthy: %w", pid, err)
	}
	var resp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(health), &resp); err != nil {
		return fmt.Errorf("could not parse health response: %w", err)
	}

	fmt.Printf("salesd is running with pid %s at %s (health: %s)\n", pid, c.AddressURL(), resp.Data.Status)
	return nil
}

func (c *Status) getText(ctx context.Context, client *http.Client, subpath string) (string, error) {
	addrURL := c.AddressURL()
	addrURL.Path = path.Join(addrURL.Path, subpath)
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status code %d: %s", resp.StatusCode, data)
	}
	return string(data), nil
}
