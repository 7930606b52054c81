package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal"
	"github.com/acai-travel/events-calendar/internal/cal/auth"
	"github.com/acai-travel/events-calendar/internal/httpx"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry
	meterProvider, err := httpx.SetupPrometheusExporter()
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpx.Shutdown(shutdownCtx, meterProvider); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	slog.Info("OpenTelemetry initialized", "metrics_endpoint", "/metrics")

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	server, err := cal.NewServer(store, auth.New(cfg.Auth.JWTSecret, cfg.Auth.CookieName), cal.Options{
		Location:     cfg.Location(),
		FirstWeekday: cfg.FirstWeekday(),
		BaseURL:      cfg.BaseURL,
		BackfillDays: cfg.LatestBackfillDays,
	})
	if err != nil {
		return err
	}

	telemetry, err := httpx.NewTelemetry()
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	handler := mux.NewRouter()
	handler.Use(
		telemetry.Middleware,
		httpx.Logger(),
		httpx.Recovery(),
	)

	handler.Handle("/metrics", promhttp.Handler())
	handler.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server.Register(handler.PathPrefix("/").Subrouter())

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Starting the server", "addr", cfg.Listen, "timezone", cfg.Timezone, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
