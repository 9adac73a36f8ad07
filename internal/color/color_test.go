// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsColorCapable(t *testing.T) {
	t.Setenv(NoColor, "1")
	assert.False(t, isColorCapable(), "NO_COLOR disables color")

	t.Setenv(ForceColor, "1")
	assert.False(t, isColorCapable(), "NO_COLOR wins over FORCE_COLOR")

	t.Setenv(NoColor, "")
	assert.True(t, isColorCapable(), "FORCE_COLOR enables color when NO_COLOR is unset")
}

func TestColorize(t *testing.T) {
	prev := SetEnabled(true)
	t.Cleanup(func() { SetEnabled(prev) })

	tests := []struct {
		name  string
		in    string
		codes []Code
		want  string
	}{
		{name: "single code", in: "ok", codes: []Code{FgGreen}, want: "\033[32mok\033[0m"},
		{name: "multiple codes", in: "bad", codes: []Code{Bold, FgRed}, want: "\033[1;31mbad\033[0m"},
		{name: "no codes", in: "plain", want: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Colorize(tt.in, tt.codes...))
		})
	}
}

func TestColorize_Disabled(t *testing.T) {
	prev := SetEnabled(false)
	t.Cleanup(func() { SetEnabled(prev) })

	assert.Equal(t, "text", Colorize("text", FgRed))
	assert.Empty(t, Sequence(Bold))
}

func TestWrap_IgnoresEnabled(t *testing.T) {
	prev := SetEnabled(false)
	t.Cleanup(func() { SetEnabled(prev) })

	assert.Equal(t, "\033[33mwarn\033[0m", Wrap("warn", FgYellow))
}
