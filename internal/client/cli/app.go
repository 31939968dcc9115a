package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/filevault/internal/client/client"
	"github.com/dmitrijs2005/filevault/internal/client/config"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage error")

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"ping":     {"ping", (*App).ping},
	"upload":   {"upload [-mime type] [-folder id] [-tags a,b] <path>", (*App).upload},
	"version":  {"version <file-id> <path>", (*App).uploadVersion},
	"download": {"download [-o path] <file-id>", (*App).download},
	"info":     {"info <file-id>", (*App).info},
	"ls":       {"ls [-folder id|root] [-q text] [-mime type] [-sort key] [-order asc|desc] [-page n] [-limit n]", (*App).list},
	"trash":    {"trash [-page n] [-limit n]", (*App).trash},
	"rm":       {"rm <file-id>", (*App).remove},
	"restore":  {"restore <file-id>", (*App).restore},
	"usage":    {"usage", (*App).usage},
	"share":    {"share [-perm view|edit] [-expires 24h] [-email a@x,b@y] [-p] <file-id>", (*App).share},
	"open":     {"open [-p] [-email addr] [-o path] <token>", (*App).open},
	"grant":    {"grant <file-id> <user-id>", (*App).grant},
	"revoke":   {"revoke <file-id> <user-id>", (*App).revoke},
}

var commandOrder = []string{"ping", "upload", "version", "download", "info", "ls", "trash", "rm", "restore", "usage", "share", "open", "grant", "revoke"}

type App struct {
	client       client.Client
	out          io.Writer
	readPassword func() (string, error)
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewFileVaultClient(c.ServerEndpointAddr, c.AccessToken, c.RequestTimeout,
		client.WithMaxFileSize(c.MaxFileSize))
	if err != nil {
		return nil, err
	}

	return newApp(apiClient, os.Stdout), nil
}

func newApp(c client.Client, out io.Writer) *App {
	return &App{client: c, out: out, readPassword: GetPassword}
}

// Run executes the command named by args[0] and closes the connection.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.client.Close()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		a.help()
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		a.help()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			return fmt.Errorf("%w\nusage: vault %s", err, cmd.usage)
		}
		return err
	}
	return nil
}

func (a *App) help() {
	fmt.Fprintln(a.out, "Available commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
}

func (a *App) ping(ctx context.Context, _ []string) error {
	if err := a.client.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}
