// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrettyHandler(t *testing.T) {
	tests := []struct {
		name    string
		options *slog.HandlerOptions
		opts    []Option
	}{
		{name: "with nil options"},
		{name: "with custom options", options: &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true}},
		{name: "with functional options", options: &slog.HandlerOptions{}, opts: []Option{WithColour(), WithOutputEmptyAttrs()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPrettyHandler(tt.options, tt.opts...)
			require.NotNil(t, h)
			assert.NotNil(t, h.h)
			assert.NotNil(t, h.b)
			assert.NotNil(t, h.m)
			assert.NotNil(t, h.writer)
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	tests := []struct {
		name    string
		level   slog.Level
		handler slog.Level
		want    bool
	}{
		{name: "debug on debug handler", level: slog.LevelDebug, handler: slog.LevelDebug, want: true},
		{name: "debug on info handler", level: slog.LevelDebug, handler: slog.LevelInfo, want: false},
		{name: "error on warn handler", level: slog.LevelError, handler: slog.LevelWarn, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPrettyHandler(&slog.HandlerOptions{Level: tt.handler})
			assert.Equal(t, tt.want, h.Enabled(context.Background(), tt.level))
		})
	}
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug}, WithDestinationWriter(&buf))
	logger := slog.New(h).With("run_id", "r-1")

	logger.Info("job started", "identity", "deadbeef", "attempt", 2)

	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "job started")
	assert.Contains(t, out, `"identity": "deadbeef"`)
	assert.Contains(t, out, `"run_id": "r-1"`)
	assert.Contains(t, out, `"attempt": 2`)
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.NotContains(t, out, "\033[", "colour is off unless requested")
}

func TestPrettyHandler_HandleColour(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(nil, WithDestinationWriter(&buf), WithColour())
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)))

	assert.Contains(t, buf.String(), "\033[31mERROR:")
}

func TestPrettyHandler_ReplaceAttrSuppressesTime(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(&slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return a
		},
	}, WithDestinationWriter(&buf))

	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "no time", 0)))
	assert.True(t, strings.HasPrefix(buf.String(), "WARN: no time"), buf.String())
}

func TestPrettyHandler_EmptyAttrs(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(nil, WithDestinationWriter(&buf), WithOutputEmptyAttrs())
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "bare", 0)))

	assert.Contains(t, buf.String(), "{}")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPrettyHandler_WriteError(t *testing.T) {
	h := NewPrettyHandler(nil, WithDestinationWriter(failingWriter{}))
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "lost", 0))

	require.ErrorIs(t, err, ErrIoWrite)
}

func TestPrettyHandler_Concurrent(t *testing.T) {
	var (
		buf bytes.Buffer
		mu  sync.Mutex
	)

	w := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()

		return buf.Write(p)
	})

	logger := slog.New(NewPrettyHandler(nil, WithDestinationWriter(w)))

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			logger.Warn("worker", "n", i)
		}()
	}

	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "WARN:"))
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
