// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/TylerBrock/colorjson"
	"github.com/bogdan-kulynych/batchrun/internal/color"
)

var (
	// ErrMarshalAttribute is returned when an error occurs while marshaling an attribute.
	ErrMarshalAttribute = errors.New("error when marshaling attribute")
	// ErrIoWrite is returned when an error occurs while writing to the output.
	ErrIoWrite = errors.New("error when writing to output")
)

const (
	// TimeFormat is the format used for timestamps in log messages.
	TimeFormat = "[15:04:05.000]"
	jsonIndent = 2
)

// PrettyHandler is a slog.Handler that renders records for humans.
// Attributes are collected by an inner JSON handler and re-printed as indented JSON.
type PrettyHandler struct {
	h                slog.Handler
	r                func([]string, slog.Attr) slog.Attr
	b                *bytes.Buffer
	m                *sync.Mutex
	writer           io.Writer
	colour           bool
	outputEmptyAttrs bool
}

// Enabled checks if the handler is enabled for the given level.
func (h *PrettyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

// WithAttrs creates a new handler with the given attributes.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.h = h.h.WithAttrs(attrs)

	return &c
}

// WithGroup creates a new handler with the given group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.h = h.h.WithGroup(name)

	return &c
}

func (h *PrettyHandler) paint(s string, codes ...color.Code) string {
	if !h.colour {
		return s
	}

	return color.Wrap(s, codes...)
}

func (h *PrettyHandler) computeAttrs(ctx context.Context, r slog.Record) (map[string]any, error) {
	h.m.Lock()
	defer func() {
		h.b.Reset()
		h.m.Unlock()
	}()

	if err := h.h.Handle(ctx, r); err != nil {
		return nil, fmt.Errorf("error when calling inner handler's Handle: %w", err)
	}

	var attrs map[string]any
	if err := json.Unmarshal(h.b.Bytes(), &attrs); err != nil {
		return nil, fmt.Errorf("error when unmarshaling inner handler's Handle result: %w", err)
	}

	return attrs, nil
}

func (h *PrettyHandler) levelString(l slog.Level) string {
	attr := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(l)}
	if h.r != nil {
		attr = h.r(nil, attr)
	}

	if attr.Equal(slog.Attr{}) {
		return ""
	}

	s := attr.Value.String() + ":"

	switch {
	case l <= slog.LevelDebug:
		return h.paint(s, color.FgWhite)
	case l <= slog.LevelInfo:
		return h.paint(s, color.FgCyan)
	case l < slog.LevelError:
		return h.paint(s, color.FgYellow)
	case l == slog.LevelError:
		return h.paint(s, color.FgRed)
	default:
		return h.paint(s, color.FgMagenta)
	}
}

// Handle implements the slog.Handler interface for PrettyHandler.
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	out := strings.Builder{}

	timeAttr := slog.Attr{Key: slog.TimeKey, Value: slog.StringValue(r.Time.Format(TimeFormat))}
	if h.r != nil {
		timeAttr = h.r(nil, timeAttr)
	}

	if !timeAttr.Equal(slog.Attr{}) {
		out.WriteString(h.paint(timeAttr.Value.String(), color.FgWhite))
		out.WriteString(" ")
	}

	if lvl := h.levelString(r.Level); lvl != "" {
		out.WriteString(lvl)
		out.WriteString(" ")
	}

	msgAttr := slog.Attr{Key: slog.MessageKey, Value: slog.StringValue(r.Message)}
	if h.r != nil {
		msgAttr = h.r(nil, msgAttr)
	}

	if !msgAttr.Equal(slog.Attr{}) {
		out.WriteString(h.paint(msgAttr.Value.String(), color.FgHiWhite))
		out.WriteString(" ")
	}

	attrs, err := h.computeAttrs(ctx, r)
	if err != nil {
		return err
	}

	if h.outputEmptyAttrs || len(attrs) > 0 {
		f := colorjson.NewFormatter()
		f.Indent = jsonIndent
		f.DisabledColor = !h.colour

		b, err := f.Marshal(attrs)
		if err != nil {
			return errors.Join(ErrMarshalAttribute, err)
		}

		out.Write(b)
	}

	out.WriteString("\n")

	if _, err := io.WriteString(h.writer, out.String()); err != nil {
		return errors.Join(ErrIoWrite, err)
	}

	return nil
}

// suppressDefaults drops the built-in keys from the inner JSON handler, they are printed separately.
func suppressDefaults(next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey ||
			a.Key == slog.LevelKey ||
			a.Key == slog.MessageKey {
			return slog.Attr{}
		}

		if next == nil {
			return a
		}

		return next(groups, a)
	}
}

// NewPrettyHandler creates a new PrettyHandler with the given options.
// Output goes to stderr unless WithDestinationWriter is given.
func NewPrettyHandler(handlerOptions *slog.HandlerOptions, options ...Option) *PrettyHandler {
	if handlerOptions == nil {
		handlerOptions = &slog.HandlerOptions{}
	}

	buf := &bytes.Buffer{}
	handler := &PrettyHandler{
		b: buf,
		h: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level:       handlerOptions.Level,
			AddSource:   handlerOptions.AddSource,
			ReplaceAttr: suppressDefaults(handlerOptions.ReplaceAttr),
		}),
		r:      handlerOptions.ReplaceAttr,
		m:      &sync.Mutex{},
		writer: os.Stderr,
	}

	for _, opt := range options {
		opt(handler)
	}

	return handler
}

// Option implements a functional options pattern for PrettyHandler.
type Option func(h *PrettyHandler)

// WithDestinationWriter sets the destination writer for the PrettyHandler.
func WithDestinationWriter(writer io.Writer) Option {
	return func(h *PrettyHandler) {
		h.writer = writer
	}
}

// WithColour forces colour output.
func WithColour() Option {
	return func(h *PrettyHandler) {
		h.colour = true
	}
}

// WithAutoColour enables colour output when the color package detects a capable terminal.
func WithAutoColour() Option {
	return func(h *PrettyHandler) {
		h.colour = color.Enabled()
	}
}

// WithOutputEmptyAttrs prints "{}" for records without attributes.
func WithOutputEmptyAttrs() Option {
	return func(h *PrettyHandler) {
		h.outputEmptyAttrs = true
	}
}
