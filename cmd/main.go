package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// prepareLogger configures the global slog logger.
// Takes a string log level ("debug", "info", "warn", "error") and sets JSON
// output on stderr, so logs never mix with the printed report.
// If the level is not recognized, Info is used.
//
// This is the only place where metric warnings are silenced: a level above
// warn hides ill-defined precision/recall and undefined AUC notices.
func prepareLogger(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// On configuration, dataset, model or gate errors the application exits with code 1.
func main() {
	cmd := newCommand(os.Stdout, os.Stderr)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("Evaluation failed", "error", err)
		os.Exit(1)
	}
}
