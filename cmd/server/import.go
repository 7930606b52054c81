package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/acai-travel/events-calendar/internal/cal/feed"
	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <url|file>",
	Short: "Load events from an iCalendar feed",
	Long:  `Reads an iCalendar document from a URL or a local file and creates an event for every VEVENT. Missing categories and locations are created.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")
		ctx := cmd.Context()

		events, err := readCalendar(ctx, args[0])
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		for _, e := range events {
			if err := ensureAssociations(ctx, store, e); err != nil {
				return err
			}

			creator := e.CreatedBy
			if creator == "" {
				creator = actor
			}
			saved, err := model.SaveEvent(ctx, store, e, creator, true)
			if err != nil {
				return fmt.Errorf("failed to save %q: %w", e.Name, err)
			}
			slog.Debug("Imported event", "event_id", saved.ID.Hex(), "name", saved.Name)
		}

		slog.Info("Import finished", "source", args[0], "events", len(events))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("actor", "import", "Creator recorded for events without a CONTACT")
}

func readCalendar(ctx context.Context, source string) ([]*model.Event, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return feed.LoadCalendar(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return feed.ParseICalendar(f)
}

func ensureAssociations(ctx context.Context, store model.Store, e *model.Event) error {
	if e.Category != "" {
		if _, err := store.DescribeCategory(ctx, e.Category); errors.Is(err, model.ErrNotFound) {
			if err := store.CreateCategory(ctx, &model.Category{Name: e.Category}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	if e.Location != "" {
		if _, err := store.DescribeLocation(ctx, e.Location); errors.Is(err, model.ErrNotFound) {
			if err := store.CreateLocation(ctx, &model.Location{Name: e.Location}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	return nil
}
