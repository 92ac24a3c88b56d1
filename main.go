// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/salesd/cli"
	"github.com/bvk/salesd/subcmds"
	"github.com/bvk/salesd/subcmds/db"
	"github.com/bvk/salesd/subcmds/reservations"
	"github.com/bvk/salesd/subcmds/setup"
	"github.com/bvk/salesd/subcmds/user"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Set),
		new(db.Delete),
		new(db.List),
		new(db.Backup),
		new(db.Restore),
	}

	setupCmds := []cli.Command{
		new(setup.MercadoPago),
		new(setup.Telegram),
	}

	userCmds := []cli.Command{
		new(user.AddAdmin),
	}

	reservationCmds := []cli.Command{
		new(reservations.Expire),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		cli.CommandGroup("db", dbCmds...),
		cli.CommandGroup("setup", setupCmds...),
		cli.CommandGroup("user", userCmds...),
		cli.CommandGroup("reservations", reservationCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
