// Package infra provides shared infrastructure components used across
// the application: structured logging and outbound HTTP clients.
package infra

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/seenimoa/stockqa/internal/config"
)

// --- Logging ---

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w in the configured format ("text" or "json").
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "stockqa")
}

// SetupLogging builds the logger and installs it as the process default.
func SetupLogging(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	logger := NewLogger(w, cfg)
	slog.SetDefault(logger)
	return logger
}

// --- HTTP ---

// NewHTTPClient returns an HTTP client with the given timeout in seconds.
// A non-positive value falls back to 30 seconds.
func NewHTTPClient(timeoutSec int) *http.Client {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	return &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
}
