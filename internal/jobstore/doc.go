// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobstore persists the state of every job ever launched from a runfile.
//
// The store is an ordered mapping from identity to Job, kept in memory and written to a single
// JSON file. Every write replaces the file atomically (temp file in the same directory, then
// rename), so a reader or a later Load only ever sees a complete snapshot.
//
// A Store is safe for concurrent use. One mutex guards the mapping and the file writes,
// so workers updating different jobs never interleave bytes on disk.
package jobstore
