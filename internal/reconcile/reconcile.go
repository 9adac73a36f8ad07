// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package reconcile decides, for one launch, which runfile commands still need to run.
//
// Commands are visited in runfile order. A command not yet in the store becomes a new PENDING
// job. A command whose job already succeeded is skipped. Anything else (PENDING, RUNNING from a
// launch that died, FAILED) is reset to PENDING and run again. In overwrite mode every command is
// reset, including those that succeeded.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/bogdan-kulynych/batchrun/internal/runfile"
)

// Mode selects how previous outcomes are treated.
type Mode string

const (
	// ModeResume skips jobs that already succeeded.
	ModeResume Mode = "resume"
	// ModeOverwrite re-runs every job.
	ModeOverwrite Mode = "overwrite"
)

// ErrUnknownMode is returned for a mode other than resume or overwrite.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode converts a user supplied mode, where empty means resume.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeResume:
		return ModeResume, nil
	case ModeOverwrite:
		return ModeOverwrite, nil
	default:
		return "", fmt.Errorf("%w %q: want %q or %q", ErrUnknownMode, s, ModeResume, ModeOverwrite)
	}
}

// Options controls reconciliation.
type Options struct {
	Mode    Mode
	LogPath func(identity string) string // Log file for a job, required.
}

// Worklist is the result of reconciling a runfile against the store.
type Worklist struct {
	Jobs        []jobstore.Job // Jobs to run, in runfile order, each identity once.
	SkippedJobs []jobstore.Job // Jobs that already succeeded, in runfile order.
	Orphans     []jobstore.Job // Store entries that are not in the runfile.
	New         int            // Commands never seen before.
	Resumed     int            // Commands seen before that did not succeed, or all of them in overwrite mode.
	Skipped     int            // Commands that already succeeded.
	Duplicates  int            // Repeated lines dropped from the runfile.
}

// Total is the number of distinct commands in the runfile.
func (w *Worklist) Total() int {
	return len(w.Jobs) + w.Skipped
}

// Reconcile classifies commands against store and upserts the jobs that will run.
// It does not flush the store.
func Reconcile(ctx context.Context, store *jobstore.Store, commands []string, opts Options) (*Worklist, error) {
	if opts.Mode == "" {
		opts.Mode = ModeResume
	}

	if opts.Mode != ModeResume && opts.Mode != ModeOverwrite {
		return nil, fmt.Errorf("%w %q", ErrUnknownMode, opts.Mode)
	}

	if opts.LogPath == nil {
		return nil, errors.New("reconcile: no log path function")
	}

	wl := &Worklist{}
	seen := make(map[string]struct{}, len(commands))

	for _, command := range commands {
		id := identity.Of(command)

		if _, dup := seen[id]; dup {
			wl.Duplicates++
			ctxlog.Debug(ctx, "duplicate command dropped", "job", identity.Short(id), "command", command)

			continue
		}

		seen[id] = struct{}{}

		existing, found := store.Get(id)

		switch {
		case !found:
			job := jobstore.NewJob(id, command, opts.LogPath(id))
			job.Parameters = runfile.Parameters(command)

			if err := store.Upsert(job); err != nil {
				return nil, fmt.Errorf("add job %s: %w", identity.Short(id), err)
			}

			wl.New++
			wl.Jobs = append(wl.Jobs, job)

		case existing.Status == jobstore.StatusSucceeded && opts.Mode == ModeResume:
			wl.Skipped++
			wl.SkippedJobs = append(wl.SkippedJobs, existing)

		default:
			ctxlog.Debug(ctx, "job will be re-run", "job", identity.Short(id), "previous", existing.Status)

			existing.Reset()
			existing.LogPath = opts.LogPath(id)
			existing.Parameters = runfile.Parameters(command)

			if err := store.Upsert(existing); err != nil {
				return nil, fmt.Errorf("reset job %s: %w", identity.Short(id), err)
			}

			wl.Resumed++
			wl.Jobs = append(wl.Jobs, existing)
		}
	}

	for _, j := range store.Jobs() {
		if _, ok := seen[j.Identity]; !ok {
			wl.Orphans = append(wl.Orphans, j)
		}
	}

	ctxlog.Info(ctx, "reconciled",
		"mode", opts.Mode,
		"new", wl.New,
		"resumed", wl.Resumed,
		"skipped", wl.Skipped,
		"duplicates", wl.Duplicates,
		"orphans", len(wl.Orphans))

	return wl, nil
}
