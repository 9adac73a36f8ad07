// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger on a context.Context.
//
// The default logger writes to stderr through PrettyHandler, which prints a timestamp,
// a coloured level, the message and the attributes as indented JSON.
// The level is read from BATCHRUN_LOG_LEVEL (DEBUG, INFO, WARN or ERROR) and defaults to WARN.
package ctxlog
