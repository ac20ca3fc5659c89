package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hylin/bookcrawl/catalog"
	"github.com/hylin/bookcrawl/config"
)

func main() {
	addrDefault := ":8000"
	if value, ok := config.EnvString("CATALOG_ADDR"); ok {
		addrDefault = value
	}
	dbDefault := "catalog.db"
	if value, ok := config.EnvString("CATALOG_DB"); ok {
		dbDefault = value
	}

	addr := flag.String("addr", addrDefault, "HTTP listen address")
	dbPath := flag.String("db", dbDefault, "SQLite database path (\":memory:\" for ephemeral)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	store, err := catalog.Open(*dbPath)
	if err != nil {
		slog.Error("opening catalog store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	server := &http.Server{
		Addr:              *addr,
		Handler:           catalog.NewRouter(store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", slog.Any("error", err))
		}
	}()

	slog.Info("catalog server listening", slog.String("addr", *addr), slog.String("db", *dbPath))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("catalog server stopped")
}
