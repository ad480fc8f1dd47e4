// FILE: logging.go
// Package main – Structured logging setup.
//
// The teacher uses plain log.Printf everywhere; that can't express the
// log_level/log_format ∈ {json,text} contract in §4.1, so this is ported to
// log/slog (grounded on MooArnon-time-series-rag-agent's internal/market
// streamer, which logs through an injected *slog.Logger).
package main

import (
	"log/slog"
	"os"
	"strings"
)

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
