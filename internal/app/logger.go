// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger builds an isolated logger for one process. Every record carries
// the mode, so server and worker output can be told apart when a cluster
// shares a terminal or a log collector. Unknown levels fall back to info.
func newLogger(levelStr, formatStr string, mode Mode, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(formatStr) {
	case "json":
		handler = slog.NewJSONHandler(outW, handlerOpts)
	default:
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	logger := slog.New(handler)
	if mode != "" {
		logger = logger.With("mode", string(mode))
	}
	return logger
}
