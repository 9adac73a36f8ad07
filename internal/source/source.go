// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package source fetches runfiles and grid specs from a local path or any
// location supported by Hashicorp's go-getter (git, http, s3, ...).
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/hashicorp/go-getter/v2"
	"github.com/spf13/afero"
)

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	goGetterForceSep      = "::"
	minimumGetterParts    = 3 // Minimum parts in a go-getter URL: scheme, host, and path
)

// ErrGetFile is returned when the file cannot be fetched.
var ErrGetFile = errors.New("failed to get file")

// FsFactory returns the file system local paths are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Fetch returns the content at url. Existing local files are read directly.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty location", ErrGetFile)
	}

	fs := FsFactory()

	if ok, _ := afero.Exists(fs, url); ok {
		data, err := afero.ReadFile(fs, url)
		if err != nil {
			return nil, errors.Join(ErrGetFile, err)
		}

		return data, nil
	}

	ctxlog.Debug(ctx, "not a local file, using go-getter", "url", url)

	return getURL(ctx, url)
}

// IsLocal reports whether url names a file on the local file system.
func IsLocal(url string) bool {
	ok, _ := afero.Exists(FsFactory(), url)
	return ok
}

// Name is the base name of the file at url, with any go-getter forcing prefix and ref query removed.
func Name(url string) string {
	if i := strings.Index(url, goGetterForceSep); i >= 0 {
		url = url[i+len(goGetterForceSep):]
	}

	url, _, _ = strings.Cut(url, goGetterRefSeparator)

	return filepath.Base(filepath.FromSlash(url))
}

// Stem is Name without its extension.
// It is used to derive default output and accounting directory names.
func Stem(url string) string {
	base := Name(url)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// getURL retrieves the content from the specified URL using Hashicorp's go-getter.
// It removes the temporary directory after reading its content.
func getURL(ctx context.Context, url string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "batchrun-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrGetFile, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     url,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	var fileName string
	// Remote sources are fetched as a directory and the file is read from there.
	// https://github.com/hashicorp/go-getter/issues/98
	if ok, err := getter.Detect(req, &getter.FileGetter{}); !ok || err != nil {
		if err != nil {
			return nil, errors.Join(ErrGetFile, err)
		}

		var newURL string

		newURL, fileName = splitFileNameFromGetterURL(url)
		if newURL == "" || fileName == "" {
			return nil, fmt.Errorf("%w: invalid URL format: %s", ErrGetFile, url)
		}

		req.Src = newURL
	}

	if fileName == "" {
		req.Src = filepath.Dir(url)
		fileName = filepath.Base(url)
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrGetFile, err)
	}

	data, err := os.ReadFile(filepath.Join(res.Dst, fileName))
	if err != nil {
		return nil, errors.Join(ErrGetFile, err)
	}

	return data, nil
}

// splitFileNameFromGetterURL splits the URL into the directory and file name.
// It returns the new getter URL without the file name and the file name itself.
// It will append any ref query parameter to the new URL if it exists.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref, fileName string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	if strings.Contains(parts[len(parts)-1], goGetterRefSeparator) {
		refSplit := strings.Split(parts[len(parts)-1], goGetterRefSeparator)
		if len(refSplit) > 1 {
			ref = strings.Join(refSplit[1:], "")
		}

		parts[len(parts)-1] = refSplit[0]
	}

	if filepath.Clean(parts[len(parts)-1]) == filepath.Dir(parts[len(parts)-1]) {
		return "", ""
	}

	fileName = filepath.Base(parts[len(parts)-1])
	parts[len(parts)-1] = filepath.Dir(parts[len(parts)-1])

	if parts[len(parts)-1] == "." {
		parts = parts[:len(parts)-1]
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
