// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"

	"task_backend/internal/platform/config"
)

// Setup builds a logger for env and installs it as the slog default.
func Setup(env string) *slog.Logger {
	log := New(env, os.Stdout)
	slog.SetDefault(log)
	return log
}

// New builds a logger for env writing to w.
// local: text/debug, dev: json/debug, prod: json/info.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
