package main

import (
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/feed"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write upcoming events as iCalendar to stdout",
	Long:  `Exports upcoming events as one iCalendar document. With --count 0 every future event is written, most recent first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		ctx := cmd.Context()

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		events, err := feed.SelectUpcoming(ctx, store, time.Now(), count)
		if err != nil {
			return err
		}

		exporter := &feed.Exporter{BaseURL: cfg.BaseURL}
		_, err = cmd.OutOrStdout().Write(exporter.ToICalendar(events))
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().IntP("count", "n", 0, "Number of upcoming events to export (0 for all)")
}
