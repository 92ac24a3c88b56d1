// Copyright (c) 2025 BVK Chaitanya

// Package reservations implements subcommands for the stock reservation
// manager.
package reservations

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bvk/salesd/cli"
	"github.com/bvk/salesd/payment"
	"github.com/bvk/salesd/subcmds/cmdutil"
	"github.com/bvkgo/kv"
)

type Expire struct {
	cmdutil.DBFlags
}

func (c *Expire) Synopsis() string {
	return "Releases expired stock reservations back to inventory"
}

func (c *Expire) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("expire", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Expire) CommandHelp() string {
	return `

Command "expire" runs one reservation expiry sweep. The running daemon
performs this sweep periodically on its own; this command exists for
maintenance against an offline database or to force a sweep immediately.

`
}

func (c *Expire) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	var count int
	sweep := func(ctx context.Context, rw kv.ReadWriter) error {
		n, err := payment.ExpireReservations(ctx, rw, time.Now().UTC())
		if err != nil {
			return err
		}
		count = n
		return nil
	}
	if err := kv.WithReadWriter(ctx, db, sweep); err != nil {
		return err
	}

	fmt.Printf("expired %d reservations\n", count)
	return nil
}
