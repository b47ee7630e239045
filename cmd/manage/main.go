// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/config"
	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/migrations"
	"github.com/nthalt/user-api/internal/user"
)

const usage = `usage: manage <command> [flags]

commands:
  create-admin   create an Admin account (password read from the terminal)
  migrate        apply or inspect schema migrations: up | down | status
  keygen         write a new ES256 signing key pair
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Error("manage failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "create-admin":
		return runCreateAdmin(ctx, args[1:], in, out)
	case "migrate":
		return runMigrate(ctx, args[1:])
	case "keygen":
		return runKeygen(args[1:], out)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func runCreateAdmin(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	var req auth.RegisterRequest
	fs.StringVar(&req.Username, "username", "", "admin username")
	fs.StringVar(&req.Email, "email", "", "admin email")
	fs.StringVar(&req.FirstName, "first-name", "", "admin first name")
	fs.StringVar(&req.LastName, "last-name", "", "admin last name")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exits right after

	userSvc := user.NewService(user.NewRepository(db.DB), user.SQLTxRunner(db.DB))
	authSvc := auth.NewService(auth.ServiceDeps{
		Repo:   auth.NewRepository(db.DB),
		Tx:     auth.SQLTxRunner(db.DB),
		Users:  userSvc,
		Policy: auth.NewPasswordPolicy(cfg.Password),
	})

	return createAdmin(ctx, authSvc, newPrompter(in, out), req)
}

func runMigrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exits right after

	switch fs.Arg(0) {
	case "up":
		return migrations.Up(ctx, db.SQL())
	case "down":
		return migrations.Down(ctx, db.SQL())
	case "status":
		return migrations.Status(ctx, db.SQL())
	default:
		return fmt.Errorf("unknown migrate direction %q: %w", fs.Arg(0), errUsage)
	}
}

func runKeygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	privatePath := fs.String("private", "keys/private.pem", "private key output path")
	publicPath := fs.String("public", "keys/public.pem", "public key output path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if err := auth.GenerateKeyPair(*privatePath, *publicPath); err != nil {
		return err
	}

	fmt.Fprintf(out, "wrote %s and %s\n", *privatePath, *publicPath)
	return nil
}
