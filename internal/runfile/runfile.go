// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runfile reads and writes runfiles: plain text, one shell command per line.
package runfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/afero"
)

const (
	commentPrefix = "#"
	fileMode      = 0o644
	dirMode       = 0o755
)

// ErrLooksLikeGridSpec is returned when a grid spec is passed where a runfile is expected.
var ErrLooksLikeGridSpec = errors.New("this looks like a grid spec, run `batchrun sweep` on it first")

// FsFactory returns the file system used when none is given.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Parse returns the commands in data, in order.
// Surrounding whitespace is stripped, and empty lines and lines starting with # are dropped.
// Duplicates are kept.
func Parse(data []byte) []string {
	var commands []string

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		commands = append(commands, line)
	}

	return commands
}

// Parameters returns the --name=value flags of command, keyed by name without dashes.
// The command is split into shell words first, so quoted values keep their spaces.
// Flags without a value are ignored, and a later flag wins over an earlier one of the same name.
// A command that cannot be split, such as one with an unclosed quote, has no parameters.
func Parameters(command string) map[string]string {
	words, err := shellwords.Parse(command)
	if err != nil {
		return nil
	}

	var params map[string]string

	for _, w := range words {
		if !strings.HasPrefix(w, "-") {
			continue
		}

		k, v, ok := strings.Cut(w, "=")
		k = strings.TrimLeft(k, "-")

		if !ok || k == "" {
			continue
		}

		if params == nil {
			params = make(map[string]string)
		}

		params[k] = v
	}

	return params
}

// CheckPath rejects paths that name a grid spec.
func CheckPath(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml", ".hcl":
		return fmt.Errorf("%s: %w", path, ErrLooksLikeGridSpec)
	}

	return nil
}

// Read loads and parses the runfile at path.
func Read(fs afero.Fs, path string) ([]string, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}

	if fs == nil {
		fs = FsFactory()
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read runfile: %w", err)
	}

	return Parse(data), nil
}

// Write stores commands at path, one per line, replacing the file atomically.
func Write(fs afero.Fs, path string, commands []string) error {
	if fs == nil {
		fs = FsFactory()
	}

	var buf bytes.Buffer

	for _, c := range commands {
		if strings.ContainsAny(c, "\r\n") {
			return fmt.Errorf("command %q spans several lines", c)
		}

		buf.WriteString(c)
		buf.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	name := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(name)

		return fmt.Errorf("write runfile: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = fs.Remove(name)
		return fmt.Errorf("close runfile: %w", err)
	}

	if err := fs.Chmod(name, fileMode); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = fs.Remove(name)
		return fmt.Errorf("chmod runfile: %w", err)
	}

	if err := fs.Rename(name, path); err != nil {
		_ = fs.Remove(name)
		return fmt.Errorf("rename runfile: %w", err)
	}

	return nil
}
