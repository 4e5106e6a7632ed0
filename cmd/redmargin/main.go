// Package main is the entry point for redmargin, a Markdown viewer that
// marks lines changed since the last commit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/redmargin/internal/app"
	"github.com/dshills/redmargin/internal/config"
	"github.com/dshills/redmargin/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile  string
	logLevel    string
	logFile     string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "redmargin",
		Short: "Markdown viewer with live git change markers",
		Long: `redmargin renders a Markdown file in the terminal and marks the lines
that differ from the last commit. Markers follow edits, staging, commits
and branch switches as they happen.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/redmargin/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		viewCmd(flags),
		rootPathCmd(flags),
		changesCmd(flags),
		watchCmd(flags),
		toggleCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "redmargin %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// loadConfig reads the config file and environment, then applies flag
// overrides.
func (f *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.Options{Path: f.configFile})
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFile != "" {
		cfg.Logging.File = f.logFile
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session is the configuration, logger and application shared by a
// command run.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	app     *app.Application
	cleanup func()
}

// newSession loads configuration and starts the application. When quiet is
// set and no log file is configured, logging is discarded so it cannot
// interfere with the terminal.
func (f *globalFlags) newSession(quiet bool) (*session, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.Nop()
	cleanup := func() {}
	if !quiet || cfg.Logging.File != "" {
		logger, cleanup, err = logging.New(cfg.LoggingOptions())
		if err != nil {
			return nil, fmt.Errorf("init logging: %w", err)
		}
	}

	application, err := app.New(cfg, app.Options{Logger: logger})
	if err != nil {
		cleanup()
		return nil, err
	}

	if addr := application.MetricsAddr(); addr != "" {
		logger.Info("metrics endpoint ready", zap.String("addr", addr))
	}

	return &session{cfg: cfg, logger: logger, app: application, cleanup: cleanup}, nil
}

// Close shuts the application down and flushes the logger.
func (s *session) Close() {
	if err := s.app.Shutdown(context.Background()); err != nil {
		s.logger.Warn("shutdown", zap.Error(err))
	}
	s.cleanup()
}
