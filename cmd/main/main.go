// Package main provides the lexicogenesis command: the HTTP service and the
// offline corpus tools.
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

	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const defaultConfigPath = "./config.json"

var (
	configPath    string
	logLevelFlag  string
	shutdownGrace = 10 * time.Second
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lexicogenesis",
		Short:         "Invent words and their definitions with Markov chains",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file (.json, .toml, .yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

// loadRuntime loads the config and builds the logger every command uses.
func loadRuntime(cmd *cobra.Command) (*Config, *slog.Logger, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level := config.Server.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLogLevel(level)}))
	return config, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	baseLogger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan // Wait for a signal
		baseLogger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := run(cmd, actionChan)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
			return err
		}

		if action != actionRestart {
			break
		}
		baseLogger.Info("--- Server Restarting ---")
	}

	baseLogger.Info("Lexicogenesis has shut down.")
	return nil
}

// run hosts one server cycle, and returns whenever the server is shut down or restarted.
func run(cmd *cobra.Command, actionChan chan string) (string, error) {
	config, logger, err := loadRuntime(cmd)
	if err != nil {
		return "", err
	}
	logger.Info("Starting server cycle...")

	if err = os.MkdirAll(config.Server.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return "", fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database opened", "driver", sqliteDriver)
	defer func() {
		logger.Info("Closing database connection.")
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	if err = dictionary.SetupSchema(db); err != nil {
		return "", fmt.Errorf("failed to setup dictionary schema: %w", err)
	}
	if err = setupAuthSchema(db); err != nil {
		return "", err
	}

	// Cancelled when this cycle ends, stopping the upgrade and the watcher.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := NewServer(ctx, config, logger, db, actionChan)
	if err != nil {
		return "", fmt.Errorf("failed to create server object: %w", err)
	}
	defer server.Close()

	server.startBackground(ctx)

	apiHttpServer := &http.Server{
		Addr:              config.Server.ApiAddr,
		Handler:           server.apiMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Api server failed", "error", err)
			select {
			case actionChan <- actionShutdown:
			default:
			}
		}
	}()

	action := <-actionChan // Block here until API or OS signal sends an action.

	logger.Info("Stopping server for " + action + "...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err = apiHttpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Api server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")

	return action, nil
}
