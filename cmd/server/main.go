// Package main is the entry point for Signalist, a stock watchlist and market news service.
//
// Commands:
//   - serve        run the HTTP server, function runtime and scheduler (default)
//   - db-ping      probe the database and print a JSON report
//   - send-digest  run the daily news digest once
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/pkg/logger"
)

// Build-time variables (set via -ldflags).
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "signalist",
	Short:         "Signalist stock watchlist and market news service",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbPingCmd)
	rootCmd.AddCommand(sendDigestCmd)
}

// loadConfig loads configuration. Tools that only touch the database skip validation.
func loadConfig(validate bool) (*config.Config, error) {
	if validate {
		return config.Load()
	}
	return config.LoadUnvalidated()
}

func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	return logger.New(logger.Config{
		Level:  level,
		Pretty: cfg.DevMode,
		Output: os.Stderr,
	})
}
