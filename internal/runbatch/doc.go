// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch executes a worklist of shell commands with bounded parallelism.
// OSCommand spawns one command through a shell and streams its output to the job log.
// Pool drains the worklist with a fixed number of workers and records every status change
// in the job store before moving on, so an interrupted launch can be resumed.
package runbatch
