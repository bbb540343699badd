// Package gdblog wraps log/slog the way the teacher's core package uses it
// directly (see core/emu.go's slog.Default() calls), adding one thing the
// teacher doesn't need: a trace level gated by Options.DebugNotifications,
// for the "set cuda debug_notifications" toggle of spec.md §7.
package gdblog

import (
	"io"
	"log/slog"
	"os"
)

// New builds a logger writing text-handler output to w (os.Stderr in
// production), at Info level normally or Debug level when trace is true.
func New(w io.Writer, trace bool) *slog.Logger {
	level := slog.LevelInfo
	if trace {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// Default builds a logger writing to os.Stderr.
func Default(trace bool) *slog.Logger {
	return New(os.Stderr, trace)
}
