// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevelEnvVar selects the log level at startup.
const LogLevelEnvVar = "BATCHRUN_LOG_LEVEL"

type loggerKey struct{}

// LevelVar is shared by every logger created in this package so the level can be changed at runtime.
var LevelVar = &slog.LevelVar{}

// DefaultLogger is the pretty console logger used when the context carries none.
var DefaultLogger = slog.New(NewPrettyHandler(&slog.HandlerOptions{
	Level: LevelVar,
},
	WithAutoColour(),
	WithDestinationWriter(os.Stderr),
))

// JSONLogger writes one JSON object per record to stderr.
var JSONLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: LevelVar,
}))

func init() {
	LevelVar.Set(parseLevel(os.Getenv(LogLevelEnvVar)))
}

// New returns a copy of ctx carrying logger. A nil logger means DefaultLogger.
func New(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = DefaultLogger
	}

	return context.WithValue(ctx, loggerKey{}, logger)
}

// NewForTUI returns a copy of ctx whose logger writes plain text to w.
// A full-screen TUI owns the terminal, so logs are collected and shown after it exits.
func NewForTUI(ctx context.Context, w io.Writer) context.Context {
	return New(ctx, slog.New(NewPrettyHandler(&slog.HandlerOptions{
		Level: LevelVar,
	},
		WithDestinationWriter(w),
	)))
}

// Logger returns the logger carried by ctx, or DefaultLogger.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok || logger == nil {
		return DefaultLogger
	}

	return logger
}

// Debug logs at debug level with the logger carried by ctx.
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).DebugContext(ctx, msg, args...)
}

// Info logs at info level with the logger carried by ctx.
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).InfoContext(ctx, msg, args...)
}

// Warn logs at warn level with the logger carried by ctx.
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).WarnContext(ctx, msg, args...)
}

// Error logs at error level with the logger carried by ctx.
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).ErrorContext(ctx, msg, args...)
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
