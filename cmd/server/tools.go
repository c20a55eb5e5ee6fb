package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalist/signalist/internal/database"
	"github.com/signalist/signalist/internal/di"
)

// PingReport is printed by db-ping
type PingReport struct {
	OK         bool   `json:"ok"`
	Database   string `json:"database"`
	URI        string `json:"uri"`
	State      string `json:"state"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

var dbPingCmd = &cobra.Command{
	Use:   "db-ping",
	Short: "Open the database, run an integrity check and print a JSON report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log := newLogger(cmd, cfg)

		connector := database.NewSQLiteConnector(database.Config{
			Path:    cfg.DatabasePath,
			Profile: database.ProfileStandard,
			Name:    "signalist",
		}, log)
		defer connector.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		report := pingDatabase(ctx, connector)
		if err := writeReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if !report.OK {
			return fmt.Errorf("database ping failed: %s", report.Error)
		}
		return nil
	},
}

// pingDatabase connects through connector and checks integrity
func pingDatabase(ctx context.Context, connector *database.Connector) PingReport {
	start := time.Now()
	report := PingReport{
		Database: connector.Name(),
		URI:      connector.RedactedURI(),
	}

	db, err := connector.Get(ctx)
	if err == nil {
		err = db.HealthCheck(ctx)
	}

	report.DurationMs = time.Since(start).Milliseconds()
	report.State = string(connector.State())
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.OK = true
	return report
}

func writeReport(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var sendDigestCmd = &cobra.Command{
	Use:   "send-digest",
	Short: "Send the daily news digest to every subscribed user now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log := newLogger(cmd, cfg)

		container, err := di.Wire(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer container.Close()

		result, err := container.DigestJob.Run(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Msg(result.Message())
		return writeReport(cmd.OutOrStdout(), result)
	},
}
