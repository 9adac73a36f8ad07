// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tests := []struct {
		name string
		ctx  context.Context
		want *slog.Logger
	}{
		{
			name: "context with logger",
			ctx:  New(context.Background(), custom),
			want: custom,
		},
		{
			name: "context with nil logger uses default",
			ctx:  New(context.Background(), nil),
			want: DefaultLogger,
		},
		{
			name: "context without logger",
			ctx:  context.Background(),
			want: DefaultLogger,
		},
		{
			name: "context with wrong type value",
			ctx:  context.WithValue(context.Background(), loggerKey{}, "not a logger"),
			want: DefaultLogger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, Logger(tt.ctx))
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer

	ctx := New(context.Background(), slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	tests := []struct {
		name    string
		logFunc func(context.Context, string, ...any)
		level   string
	}{
		{name: "debug", logFunc: Debug, level: "DEBUG"},
		{name: "info", logFunc: Info, level: "INFO"},
		{name: "warn", logFunc: Warn, level: "WARN"},
		{name: "error", logFunc: Error, level: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc(ctx, "job finished", "identity", "abc123")

			out := buf.String()
			assert.Contains(t, out, "level="+tt.level)
			assert.Contains(t, out, "job finished")
			assert.Contains(t, out, "identity=abc123")
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "ERROR", want: slog.LevelError},
		{in: "", want: slog.LevelWarn},
		{in: "verbose", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewForTUI(t *testing.T) {
	prev := LevelVar.Level()
	LevelVar.Set(slog.LevelInfo)
	t.Cleanup(func() { LevelVar.Set(prev) })

	var buf bytes.Buffer

	ctx := NewForTUI(context.Background(), &buf)
	require.NotSame(t, DefaultLogger, Logger(ctx))

	Info(ctx, "buffered")
	assert.Contains(t, buf.String(), "buffered")
	assert.NotContains(t, buf.String(), "\033[", "TUI logs are written without colour")
}
