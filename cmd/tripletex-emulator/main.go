// Package main runs a local Tripletex API emulator for development and tests.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cybernetisk/okotools/pkg/emulator/api"
	"github.com/cybernetisk/okotools/pkg/emulator/store"
	"github.com/shopspring/decimal"
)

const (
	defaultPort   = "8080"
	defaultDBPath = "./data/tripletex.db"
)

func main() {
	// Setup structured JSON logging.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Amounts are plain JSON numbers in the real API.
	decimal.MarshalJSONWithoutQuotes = true

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	var opts store.Options
	if v := os.Getenv("LEDGER_SERIES"); v != "" {
		series, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("invalid LEDGER_SERIES", "value", v, "error", err)
			os.Exit(1)
		}
		opts.LedgerSeries = series
	}

	st, err := store.New(dbPath, opts)
	if err != nil {
		slog.Error("failed to initialize store", "error", err, "db_path", dbPath)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	slog.Info("database initialized", "db_path", dbPath, "ledger_series", st.LedgerSeries())

	if seedFile := os.Getenv("SEED_FILE"); seedFile != "" {
		data, err := os.ReadFile(seedFile)
		if err != nil {
			slog.Error("failed to read seed file", "error", err, "path", seedFile)
			os.Exit(1)
		}
		if err := st.SeedFile(data); err != nil {
			slog.Error("failed to seed store", "error", err, "path", seedFile)
			os.Exit(1)
		}
		slog.Info("seed data loaded", "path", seedFile)
	}

	addr := fmt.Sprintf(":%s", port)
	slog.Info("starting tripletex API emulator", "addr", addr, "port", port)

	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(st),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		if err := server.Close(); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
