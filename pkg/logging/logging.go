// Package logging configures structured logging for the feeminton binaries.
//
// Development runs get colored output through tint; production runs emit
// JSON lines so the platform log collector can parse them.
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures the default logger at the level from LOG_LEVEL.
// PRE: none
// POST: slog default logger replaced
func Setup(production bool) {
	SetupWithLevel(os.Stderr, levelFromEnv(), production)
}

// SetupWithLevel configures the default logger at the given level.
// PRE: w is a writable sink
// POST: slog default logger writes to w
func SetupWithLevel(w io.Writer, level slog.Level, production bool) {
	slog.SetDefault(slog.New(NewHandler(w, level, production)))
}

// NewHandler returns the handler Setup installs, for callers that need a
// scoped logger instead of the default one.
func NewHandler(w io.Writer, level slog.Level, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
