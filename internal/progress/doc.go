// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries job lifecycle events from the worker pool to whoever is watching,
// usually the TUI. Reporting never blocks a worker.
package progress
