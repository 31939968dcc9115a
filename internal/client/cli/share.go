package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/filevault/internal/client/client"
)

func (a *App) share(ctx context.Context, args []string) error {
	fs := newFlagSet("share")
	perm := fs.String("perm", "view", "view or edit")
	expires := fs.Duration("expires", 0, "link lifetime, never expires when 0")
	emails := fs.String("email", "", "comma separated recipients allowed to open the link")
	askPassword := fs.Bool("p", false, "protect the link with a password")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	opts := client.ShareOptions{Permission: *perm, Emails: splitList(*emails)}
	if *expires > 0 {
		at := time.Now().Add(*expires).UTC()
		opts.ExpiresAt = &at
	}
	if *askPassword {
		if opts.Password, err = a.readPassword(); err != nil {
			return err
		}
	}

	link, err := a.client.CreateShareLink(ctx, rest[0], opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, link.ShareURL)
	return nil
}

func (a *App) open(ctx context.Context, args []string) error {
	fs := newFlagSet("open")
	askPassword := fs.Bool("p", false, "prompt for the link password")
	email := fs.String("email", "", "visitor email for restricted links")
	out := fs.String("o", "", "output path, the shared file name when empty")
	rest, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	var password string
	if *askPassword {
		if password, err = a.readPassword(); err != nil {
			return err
		}
	}

	d, err := a.client.OpenShareLink(ctx, rest[0], password, *email)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Base(d.File.OriginalName)
	}
	return a.writeOutput(path, d.Data)
}

func (a *App) grant(ctx context.Context, args []string) error {
	rest, err := parseArgs(newFlagSet("grant"), args, 2)
	if err != nil {
		return err
	}
	if err := a.client.GrantAccess(ctx, rest[0], rest[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Shared %s with %s\n", rest[0], rest[1])
	return nil
}

func (a *App) revoke(ctx context.Context, args []string) error {
	rest, err := parseArgs(newFlagSet("revoke"), args, 2)
	if err != nil {
		return err
	}
	if err := a.client.RevokeAccess(ctx, rest[0], rest[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Revoked access of %s to %s\n", rest[1], rest[0])
	return nil
}
