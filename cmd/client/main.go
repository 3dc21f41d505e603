package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dmitrijs2005/electica/internal/buildinfo"
	"github.com/dmitrijs2005/electica/internal/client/cli"
	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/config"
	"github.com/dmitrijs2005/electica/internal/client/repositories"
	"github.com/dmitrijs2005/electica/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/electica/internal/client/session"
	"github.com/dmitrijs2005/electica/internal/filex"
	"github.com/dmitrijs2005/electica/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, level)

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return err
	}
	db, err := repositories.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	defer db.Close()

	api := client.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout, logger)
	store := session.NewStore(api, metadata.NewSQLiteStore(db), logger,
		session.WithRevalidation(cfg.RevalidateOnStart))
	api.UseSession(store)

	go func() {
		if err := store.Restore(ctx); err != nil {
			logger.Warn(ctx, "session restore failed", "error", err)
		}
	}()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	app := cli.NewApp(cfg, api, store, logger, os.Stdin, os.Stdout, interactive)

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		fmt.Println()
		fmt.Println("Bye!")
	}
	return nil
}
