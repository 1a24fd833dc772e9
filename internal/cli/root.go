// Package cli provides the command-line interface for the profiler.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/profiler/internal/config"
	"github.com/JonMunkholm/profiler/internal/logging"
)

// Version is set by the main package at startup.
var Version = "dev"

// app carries state shared by all commands.
type app struct {
	cfg *config.Config

	endpointURL string
	logLevel    string
	verbose     bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "profiler",
		Short: "Gen AI based Data profiling from the command line",
		Long: `Upload a regulations PDF and a dataset CSV to the rule generation
service, then read or save the generated rules and validation response.

Configuration comes from the same environment variables as the web server
(ENDPOINT_URL, ENDPOINT_TIMEOUT, UPLOAD_MAX_FILE_SIZE, DATABASE_URL, ...).
A .env file in the working directory is loaded first.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.endpointURL, "endpoint", "", "Rule generation endpoint URL (overrides ENDPOINT_URL)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output (same as --log-level debug)")

	rootCmd.AddCommand(newConvertCmd(a))
	rootCmd.AddCommand(newUploadCmd(a))
	rootCmd.AddCommand(newTUICmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))

	return rootCmd
}

func (a *app) init() error {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.endpointURL != "" {
		cfg.Endpoint.URL = a.endpointURL
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// stdout carries command output.
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "endpoint", cfg.Endpoint.URL, "history_persistent", cfg.History.Persistent())

	a.cfg = cfg
	return nil
}

// Execute runs the root command with SIGINT and SIGTERM cancelling the context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
