/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/contactbook/apiserver/config"
	"github.com/contactbook/apiserver/internal/db"
	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/storage"
	"github.com/contactbook/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON snapshot of all contacts to object storage",
	Long: `Write a JSON snapshot of every contact, including soft-deleted ones,
to the bucket of the configured STORAGE_BACKEND (minio, gcs or s3). Usage:

	contactbook export
	contactbook export show exports/contacts-20260101T000000Z.json
	contactbook export rm exports/contacts-20260101T000000Z.json
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg.LogLevel)

		exporter, closeFn, err := openExporter(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		result, err := exporter.Export(cmd.Context())
		if err != nil {
			return err
		}

		logger.Info("export written",
			slog.String("bucket", result.Bucket),
			slog.String("key", result.Key),
			slog.Int("contacts", result.Count),
		)
		fmt.Fprintln(cmd.OutOrStdout(), result.Key)
		return nil
	},
}

var exportShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Print a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		newLogger(cfg.LogLevel)

		exporter, closeFn, err := openExporter(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		snapshot, err := exporter.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	},
}

var exportRemoveCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Delete a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		newLogger(cfg.LogLevel)

		exporter, closeFn, err := openExporter(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		return exporter.Remove(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportShowCmd, exportRemoveCmd)
}

func openExporter(cmd *cobra.Command, cfg config.Config) (*services.ExportService, func(), error) {
	conn, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	objects, err := storage.Open(cmd.Context(), cfg.Storage)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	exporter := services.NewExportService(store.NewContactRepository(conn), objects)
	return exporter, func() { _ = conn.Close() }, nil
}
