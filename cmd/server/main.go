package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/acai-travel/events-calendar/internal/config"
	"github.com/acai-travel/events-calendar/internal/mongox"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string

	cfg *config.Config
)

// rootCmd serves the calendar when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Events calendar server",
	Long:          `Serves the events calendar: month views, feeds, iCalendar exports and event editing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file instead of .env")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// loadEnv reads .env when present. An explicit --env-file must exist.
func loadEnv() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context) (model.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		slog.Warn("Using the in-memory store, events are lost on exit")
		return model.NewMemory(), func() {}, nil
	}

	db, err := mongox.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := mongox.EnsureIndexes(ctx, db); err != nil {
		_ = db.Client().Disconnect(context.Background())
		return nil, nil, err
	}

	slog.Info("Connected to MongoDB", "database", db.Name())
	return model.New(db), func() { _ = db.Client().Disconnect(context.Background()) }, nil
}
