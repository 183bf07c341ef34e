package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/liamcoop/lacvalidate/catalogue"
	"github.com/liamcoop/lacvalidate/internal/config"
	"github.com/liamcoop/lacvalidate/internal/logger"
	"github.com/liamcoop/lacvalidate/rules"
	"github.com/liamcoop/lacvalidate/rulesets"
)

// buildManager composes the built-in catalogue with deltas from the
// optional catalogue file and then the optional delta store, in that order.
func buildManager(ctx context.Context, cfg config.Config, store rules.DeltaStore) (*rulesets.Manager, error) {
	var extra []rules.YearDelta

	if cfg.CatalogueFile != "" {
		deltas, err := catalogue.LoadFile(cfg.CatalogueFile)
		if err != nil {
			return nil, err
		}
		extra = catalogue.Merge(extra, deltas)
	}

	if store != nil {
		deltas, err := loadStore(ctx, store)
		if err != nil {
			return nil, err
		}
		extra = catalogue.Merge(extra, deltas)
	}

	return catalogue.NewManager(extra...)
}

func loadStore(ctx context.Context, store rules.DeltaStore) ([]rules.YearDelta, error) {
	years, err := store.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored years: %w", err)
	}
	deltas := make([]rules.YearDelta, 0, len(years))
	for _, y := range years {
		d, err := store.Load(ctx, y)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored year %d: %w", y, err)
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

func openStore(ctx context.Context, databaseURL string) (*sql.DB, rules.DeltaStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, rules.NewPostgresDeltaStore(db), nil
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	var store rules.DeltaStore
	if cfg.DatabaseURL != "" {
		db, s, err := openStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to delta store", "error", err)
		}
		defer db.Close()
		store = s
	}

	manager, err := buildManager(ctx, cfg, store)
	cancel()
	if err != nil {
		logger.Fatal("failed to build rulesets", "error", err)
	}
	logger.Info("rulesets loaded", "years", manager.Years(), "stored_deltas", store != nil)

	server := NewServer(cfg, manager, logger.Logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RunTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "workers", cfg.Workers)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
