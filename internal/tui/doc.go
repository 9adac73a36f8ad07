// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a real-time terminal view of a launch. It lists every job of the
// runfile with a status indicator, elapsed time and the last line of output of running jobs,
// above a progress bar of finished jobs.
//
// The view is fed by progress events through TUIReporter and stays open after the launch
// finishes until the user quits.
package tui
