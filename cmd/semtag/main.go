// Package main provides the semtag binary entry point.
// semtag generates descriptive metadata for the tables of a data-platform
// project with a text completion model and writes it back to storage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/semtag/llm/providers"

	"github.com/c360studio/semtag/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semtag"
)

// Exit statuses.
const (
	exitUserError = 1
	exitAppError  = 2
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitAppError)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps user errors to 1 and everything else to 2.
func exitCode(err error) int {
	if config.IsUserError(err) {
		return exitUserError
	}
	return exitAppError
}

func rootCmd() *cobra.Command {
	var (
		dataDir  string
		envFile  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "semtag",
		Short: "AI metadata tagger for storage tables",
		Long: `semtag describes the tables of a project with labels generated by a
text completion model.

For every table that passes the flow and pattern filters it generates:
- content and role labels for the table
- content, category and data type labels for each column
- two categories induced from all labels of the run

The labels are written back as table and column metadata unless the
configuration is a dry run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), dataDir, envFile, logLevel)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory holding config.json (default $KBC_DATADIR or /data/)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Environment file to load (default .env when present)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func newLogger(logLevel, runID string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run_id", runID)
}

func run(ctx context.Context, dataDir, envFile, logLevel string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runID := uuid.New().String()
	logger := newLogger(logLevel, runID)
	slog.SetDefault(logger)

	loader := config.NewLoader(logger)
	env, err := loader.LoadEnvironment(envFile, dataDir)
	if err != nil {
		return err
	}
	logger.Info("Data directory", "path", env.DataDir)

	cfg, err := loader.Load(env.DataDir)
	if err != nil {
		return err
	}
	logger.Info("Configuration loaded", "config", cfg.String())

	app, err := NewApp(cfg, env, runID, logger)
	if err != nil {
		return err
	}

	// Setup signal handling
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := app.Start(signalCtx); err != nil {
		return err
	}
	defer app.Shutdown()

	logger.Info("semtag starting", "version", Version)
	if _, err := app.Run(signalCtx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
