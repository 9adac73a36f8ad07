// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf_Deterministic(t *testing.T) {
	commands := []string{
		"",
		"python train.py --lr=0.1",
		"echo 'héllo wörld'",
		strings.Repeat("x", 10000),
	}

	for _, c := range commands {
		assert.Equal(t, Of(c), Of(c))
		assert.Len(t, Of(c), Len)
		assert.Equal(t, strings.ToLower(Of(c)), Of(c))
	}
}

func TestOf_KnownValue(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Of("abc"))
}

func TestOf_ByteExact(t *testing.T) {
	pairs := []struct {
		name string
		a, b string
	}{
		{name: "reordered flags", a: "--a=1 --b=2", b: "--b=2 --a=1"},
		{name: "extra inner space", a: "run --a=1", b: "run  --a=1"},
		{name: "trailing space", a: "run", b: "run "},
		{name: "case", a: "Run", b: "run"},
		{name: "quoting", a: `echo "x"`, b: "echo 'x'"},
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			assert.NotEqual(t, Of(p.a), Of(p.b))
		})
	}
}

func TestShort(t *testing.T) {
	id := Of("abc")
	assert.Equal(t, "ba7816bf8f01", Short(id))
	assert.Equal(t, "abc", Short("abc"))
}
