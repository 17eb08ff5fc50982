// CLAUDE:SUMMARY CLI entry point for domreplay: record configured pages, snapshot a single URL, inspect stored segments.
// Command domreplay records pages into session-replay segments.
//
// Usage:
//
//	domreplay record -config domreplay.yaml    # record pages from YAML config
//	domreplay snapshot https://example.com     # record one page to stdout
//	domreplay inspect segment.bin              # summarize a stored segment
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var (
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "domreplay",
	Short: "Session-replay capture engine",
	Long: `domreplay mirrors live pages into privacy-filtered replay records,
packs them into compressed segments and delivers them to sinks.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(logLevel)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.AddCommand(recordCmd, snapshotCmd, inspectCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(name string) *slog.Logger {
	var level slog.Level
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
