// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package logging constructs the structured [slog.Logger] used throughout
orm1go. It is deliberately small: one JSON handler, one level parsed from
configuration, one "app" attribute for correlation — the same shape
cmd/api/main.go built inline. Every collaborator in this module receives its
logger explicitly through a constructor; nothing here touches slog's default
logger or a package-global.
*/
package logging

import (
	"log/slog"
	"os"
)

// New builds a JSON-handler [slog.Logger] at level, tagged with app name
// "orm1go" for trace correlation across the demo CLI and the core packages
// it wires together.
func New(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With(slog.String("app", "orm1go"))
}

// ParseLevel maps a configuration string ("debug", "info", "warn", "error")
// to its [slog.Level], defaulting to Info for an unrecognized value.
func ParseLevel(level string) slog.Level {
	switch level {
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
