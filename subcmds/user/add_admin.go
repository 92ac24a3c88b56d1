// Copyright (c) 2025 BVK Chaitanya

// Package user implements subcommands that manage user accounts directly
// against the database.
package user

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bvk/salesd/cli"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/subcmds/cmdutil"
	"github.com/bvk/salesd/users"
	"github.com/bvkgo/kv"
	"golang.org/x/term"
)

type AddAdmin struct {
	cmdutil.DBFlags

	email     string
	firstName string
	lastName  string
	phone     string
	dni       string
}

func (c *AddAdmin) Synopsis() string {
	return "Creates an administrator account"
}

func (c *AddAdmin) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("add-admin", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.email, "email", "", "email address for the new account")
	fset.StringVar(&c.firstName, "first-name", "", "first name for the new account")
	fset.StringVar(&c.lastName, "last-name", "", "last name for the new account")
	fset.StringVar(&c.phone, "phone", "", "phone number for the new account")
	fset.StringVar(&c.dni, "dni", "", "national identity number for the new account")
	return fset, cli.CmdFunc(c.run)
}

func (c *AddAdmin) CommandHelp() string {
	return `

Command "add-admin" creates an administrator account. The password is read
interactively from the terminal and is never taken on the command-line.

  $ salesd user add-admin --data-dir=$HOME/.salesd --email=admin@example.com

`
}

func (c *AddAdmin) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if len(c.email) == 0 {
		return fmt.Errorf("email cannot be empty")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("could not read password: %w", err)
	}
	fmt.Print("Repeat password: ")
	repeat, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("could not read password: %w", err)
	}
	if string(password) != string(repeat) {
		return fmt.Errorf("passwords do not match")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	var u *gobs.User
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := users.Create(ctx, rw, &users.CreateArgs{
			Email:     c.email,
			FirstName: c.firstName,
			LastName:  c.lastName,
			Phone:     c.phone,
			DNI:       c.dni,
			Password:  string(password),
			IsAdmin:   true,
		})
		if err != nil {
			return err
		}
		u = v
		return nil
	}
	if err := kv.WithReadWriter(ctx, db, create); err != nil {
		return err
	}

	fmt.Printf("created admin account %s with id %s\n", u.Email, u.ID)
	return nil
}
