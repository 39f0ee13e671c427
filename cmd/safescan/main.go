package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/appstate"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/config"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/database"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
)

func main() {
	registry := NewCommandRegistry()
	registerCommands(registry)

	cmd, err := registry.Lookup(os.Args[1:])
	if err != nil {
		registry.PrintHelp(os.Stderr)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if cmd == nil {
		registry.PrintHelp(os.Stdout)
		return
	}

	if err := run(cmd, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *Command, args []string) error {
	cfg := config.Load()

	db, err := database.OpenLocal(cfg.StateDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if err := database.MigrateModels(db, &models.SystemLog{}); err != nil {
		return fmt.Errorf("failed to migrate local logs: %w", err)
	}

	// Warnings to stderr; errors are also kept in the local state file.
	dbLogHandler := logging.NewDBHandler(db, "device", 5*time.Second)
	defer dbLogHandler.Stop()
	logger := slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		dbLogHandler,
	))
	logging.PurgeOlderThan(db, time.Now().Add(-cfg.LogRetention))

	store, err := kvstore.NewGormStore(db, logger.With("component", "kvstore"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := appstate.New(ctx, cfg, store, logger)
	defer app.Close()
	app.Restore(ctx)

	return cmd.Run(ctx, &Env{App: app, Out: os.Stdout}, args)
}
