// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package orchestrator drives one launch of a runfile: it loads the job store, reconciles the
// runfile against it, runs the outstanding jobs on the worker pool and summarises the outcome.
//
// Everything a launch persists lives under the accounting directory:
//
//	<accounting dir>/metadata.json         the job store
//	<accounting dir>/logs/<identity>.log   combined output of each job
package orchestrator
