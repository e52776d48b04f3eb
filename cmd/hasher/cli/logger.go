// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the structured logger for one command invocation.
// The default level is Warn; each -v lowers it one step (Info, then
// Debug) and --quiet raises it to Error. When stderr is a terminal the
// handler is slog.TextHandler for human-readable output; when stderr
// is piped or redirected (CI, scripts) it is slog.JSONHandler so the
// diagnostics stay machine-parseable and never collide with record
// emission on stdout.
func NewLogger(verbosity int, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}

	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
