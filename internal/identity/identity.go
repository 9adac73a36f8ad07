// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package identity derives the stable key of a command line.
//
// The key is the lowercase hex SHA-256 of the exact command bytes. Nothing is normalised:
// reordered flags or extra whitespace produce a different identity.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// Len is the width of an identity in characters.
	Len = sha256.Size * 2
	// ShortLen is the width of the display form returned by Short.
	ShortLen = 12
)

// Of returns the identity of command.
func Of(command string) string {
	sum := sha256.Sum256([]byte(command))
	return hex.EncodeToString(sum[:])
}

// Short returns an abbreviated identity for display. It must not be used as a key.
func Short(id string) string {
	if len(id) <= ShortLen {
		return id
	}

	return id[:ShortLen]
}
