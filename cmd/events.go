/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/contactbook/apiserver/config"
	"github.com/contactbook/apiserver/internal/mq"
	"github.com/contactbook/apiserver/types"
	"github.com/spf13/cobra"
)

// eventsCmd groups contact lifecycle event tooling.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect contact lifecycle events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log contact lifecycle events as they arrive",
	Long: `Subscribe to EVENTS_CHANNEL on the configured EVENTS_BACKEND and log
every contact.created, contact.updated and contact.deleted event. Usage:

	contactbook events watch
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg.LogLevel)

		backend, err := mq.Open(cmd.Context(), cfg.Events)
		if err != nil {
			if errors.Is(err, mq.ErrDisabled) {
				return errors.New("EVENTS_BACKEND is not set")
			}
			return fmt.Errorf("open events backend: %w", err)
		}

		events, err := mq.NewContactEvents(backend, cfg.Events.Channel)
		if err != nil {
			_ = backend.Close()
			return err
		}
		defer events.Close()

		logger.Info("watching contact events", slog.String("channel", events.Channel()))
		err = events.Watch(cmd.Context(), func(_ context.Context, event types.ContactEvent) error {
			logger.Info("contact event",
				slog.String("event_id", event.ID),
				slog.String("type", event.Type),
				slog.Int64("contact_id", event.Contact.ID),
				slog.String("email", event.Contact.Email),
				slog.Bool("active", event.Contact.Active),
				slog.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
