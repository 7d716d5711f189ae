package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guilhermeosaka/voxpop-web/apiclient"
	"github.com/guilhermeosaka/voxpop-web/cliparse"
	"github.com/guilhermeosaka/voxpop-web/db"
	"github.com/guilhermeosaka/voxpop-web/handlers"
	"github.com/guilhermeosaka/voxpop-web/router"
	"github.com/guilhermeosaka/voxpop-web/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cliparse.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	level, _ := cliparse.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Open the credential store
	var store session.Store
	switch cfg.StoreType {
	case cliparse.StoreMemory:
		store = session.NewMemoryStore()
	default:
		conn, err := db.Open(cfg.StoreType, cfg.StoreURL)
		if err != nil {
			slog.Error("credential store unavailable", "error", err)
			return 1
		}
		defer conn.Close()
		store = session.NewSQLStore(conn)
	}

	client := apiclient.New(cfg.CoreAPIURL, cfg.IdentityAPIURL, nil)
	manager := session.NewManager(store, client)
	env := handlers.NewEnv(client, manager, os.Stdin, os.Stdout, os.Stderr)
	mux := router.NewRouter(env)

	if len(cfg.Args) == 0 || cfg.Args[0] == "help" {
		mux.Usage(os.Stdout)
		return 0
	}

	// Ctrl-C cancels in-flight requests
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Refresh a stored session once before the command runs
	switch cfg.Args[0] {
	case "login", "logout":
	default:
		if _, _, err := manager.Restore(ctx); err != nil {
			slog.Warn("session restore failed", "error", err)
		}
	}

	err = mux.Dispatch(ctx, cfg.Args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, router.ErrUnknownCommand):
		fmt.Fprintln(os.Stderr, err)
		mux.Usage(os.Stderr)
		return 2
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, handlers.ErrUsage):
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	slog.Debug("command failed", "command", cfg.Args[0], "error", err)
	fmt.Fprintln(os.Stderr, "voxpop:", handlers.Message(err))
	return 1
}
