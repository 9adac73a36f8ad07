// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"

	csi   = "\033["
	sgr   = "m"
	reset = csi + "0" + sgr
)

// Code is an ANSI SGR parameter.
type Code int

// Text attributes.
const (
	Reset Code = 0
	Bold  Code = 1
	Faint Code = 2
)

// Foreground colors.
const (
	FgRed     Code = 31
	FgGreen   Code = 32
	FgYellow  Code = 33
	FgBlue    Code = 34
	FgMagenta Code = 35
	FgCyan    Code = 36
	FgWhite   Code = 37
	FgHiBlack Code = 90
	FgHiRed   Code = 91
	FgHiWhite Code = 97
)

var enabled atomic.Bool

func init() {
	enabled.Store(isColorCapable())
}

// Enabled reports whether Colorize emits escape codes.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled overrides terminal detection. It returns the previous value.
func SetEnabled(v bool) bool {
	return enabled.Swap(v)
}

// Colorize wraps str in the given codes followed by a reset.
// It returns str untouched when color is disabled or no codes are given.
func Colorize(str string, codes ...Code) string {
	if !Enabled() {
		return str
	}

	return Wrap(str, codes...)
}

// Wrap is Colorize without the enabled check, for writers that decide on color themselves.
func Wrap(str string, codes ...Code) string {
	if len(codes) == 0 {
		return str
	}

	sb := strings.Builder{}
	sb.Grow(len(str) + len(reset) + len(csi) + len(sgr) + 4*len(codes)) //nolint:mnd
	writeSequence(&sb, codes)
	sb.WriteString(str)
	sb.WriteString(reset)

	return sb.String()
}

// Sequence returns the raw escape sequence for the given codes, or "" when color is disabled.
func Sequence(codes ...Code) string {
	if !Enabled() || len(codes) == 0 {
		return ""
	}

	sb := strings.Builder{}
	writeSequence(&sb, codes)

	return sb.String()
}

func writeSequence(sb *strings.Builder, codes []Code) {
	sb.WriteString(csi)

	for i, c := range codes {
		if i > 0 {
			sb.WriteByte(';')
		}

		sb.WriteString(strconv.Itoa(int(c)))
	}

	sb.WriteString(sgr)
}

func isColorCapable() bool {
	if os.Getenv(NoColor) != "" {
		return false
	}

	if os.Getenv(ForceColor) != "" {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}
