// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package gridspec parses a declarative parameter grid and expands it into command lines.
//
// A grid spec names a program and an ordered list of parameters, each with a list of values.
// Every combination of values, taken in declared parameter order with values in list order,
// becomes one command: `<program> --name=value ...`.
// Grid specs are written in YAML or HCL.
package gridspec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNoProgram is returned when the spec does not name a program.
	ErrNoProgram = errors.New("grid spec error: program not specified")
	// ErrNoParameters is returned when the spec has no parameters section.
	ErrNoParameters = errors.New("grid spec error: parameters not specified")
	// ErrInvalidParameter is returned when a parameter has no usable values.
	ErrInvalidParameter = errors.New("grid spec error: invalid parameter")
	// ErrUnknownFormat is returned when the file extension is not a known grid spec format.
	ErrUnknownFormat = errors.New("grid spec error: unknown format, want .yml, .yaml or .hcl")
	// ErrTooLarge is returned when the grid expands to more than MaxCommands commands.
	ErrTooLarge = errors.New("grid spec error: too many combinations")
)

// MaxCommands bounds the number of commands a grid spec may expand to.
const MaxCommands = 1_000_000

// Spec is a parsed grid spec.
type Spec struct {
	Program    string
	Parameters []Parameter
}

// Parameter is one axis of the grid.
type Parameter struct {
	Name   string
	Values []string
}

// Assignment is one parameter bound to one value.
type Assignment struct {
	Name  string
	Value string
}

// String renders the assignment as a command line flag.
func (a Assignment) String() string {
	return fmt.Sprintf("--%s=%s", a.Name, a.Value)
}

// Parse dispatches on the file extension of filename.
func Parse(filename string, data []byte) (*Spec, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yml", ".yaml":
		return ParseYAML(data)
	case ".hcl":
		return ParseHCL(data, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filename)
	}
}

// checkSize rejects a spec whose expansion would exceed MaxCommands.
func (s *Spec) checkSize() (*Spec, error) {
	if s.Size() > MaxCommands {
		return nil, fmt.Errorf("%w: more than %d", ErrTooLarge, MaxCommands)
	}

	return s, nil
}

// ProcessProgram joins a program written over several lines into one command line.
// Each line is trimmed, a trailing backslash continuation is dropped, and the
// non-empty lines are joined with single spaces.
func ProcessProgram(program string) string {
	var parts []string

	for _, line := range strings.Split(program, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSuffix(line, `\`)
		line = strings.TrimSpace(line)

		if line != "" {
			parts = append(parts, line)
		}
	}

	return strings.Join(parts, " ")
}

// Size is the number of combinations Expand yields. Past MaxCommands it reports MaxCommands+1.
func (s *Spec) Size() int {
	n := 1
	for _, p := range s.Parameters {
		n *= len(p.Values)
		if n > MaxCommands {
			return MaxCommands + 1
		}
	}

	return n
}

// Expand returns the cartesian product of the parameter values.
// The last declared parameter varies fastest.
func (s *Spec) Expand() [][]Assignment {
	combos := [][]Assignment{{}}

	for _, p := range s.Parameters {
		next := make([][]Assignment, 0, len(combos)*len(p.Values))

		for _, c := range combos {
			for _, v := range p.Values {
				combo := make([]Assignment, len(c), len(c)+1)
				copy(combo, c)
				next = append(next, append(combo, Assignment{Name: p.Name, Value: v}))
			}
		}

		combos = next
	}

	return combos
}

// Commands renders every combination as a command line.
func (s *Spec) Commands() []string {
	combos := s.Expand()
	out := make([]string, 0, len(combos))

	for _, combo := range combos {
		var b strings.Builder

		b.WriteString(s.Program)

		for _, a := range combo {
			b.WriteByte(' ')
			b.WriteString(a.String())
		}

		out = append(out, b.String())
	}

	return out
}
