package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/cardswitch/card-switch/internal/config"
)

// NewLogger creates and configures a new slog.Logger
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source code location to log output
		AddSource: level == slog.LevelDebug,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	logger.Info("logger initialized", "level", level, "app", cfg.Application.Name)

	return logger
}

// NewAuditLogger derives the dedicated audit logger. Audit records carry a
// fixed channel attribute so downstream log shippers can fan them out
// separately from operational logs.
func NewAuditLogger(base *slog.Logger) *slog.Logger {
	return base.With("channel", "AUDIT")
}
