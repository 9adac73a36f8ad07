// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bogdan-kulynych/batchrun/internal/color"
	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/hashicorp/go-multierror"
)

// ErrSpawn is the cause of a JobFailure whose command could not be started.
var ErrSpawn = errors.New("command could not be started")

// JobFailure describes one failed job.
type JobFailure struct {
	Identity string
	Command  string
	ExitCode *int // nil when the command never started
	LogPath  string
	Cause    error
}

func newJobFailure(j jobstore.Job) *JobFailure {
	f := &JobFailure{
		Identity: j.Identity,
		Command:  j.Command,
		ExitCode: j.ExitCode,
		LogPath:  j.LogPath,
	}

	switch {
	case j.ExitCode == nil:
		f.Cause = ErrSpawn
		if j.Error != "" {
			f.Cause = fmt.Errorf("%w: %s", ErrSpawn, j.Error)
		}
	case j.Error != "":
		f.Cause = errors.New(j.Error)
	}

	return f
}

func (f *JobFailure) Error() string {
	if f.ExitCode == nil {
		return fmt.Sprintf("job %s: %v (log: %s)", identity.Short(f.Identity), f.Cause, f.LogPath)
	}

	return fmt.Sprintf("job %s exited with code %d (log: %s)", identity.Short(f.Identity), *f.ExitCode, f.LogPath)
}

func (f *JobFailure) Unwrap() error {
	return f.Cause
}

// Summary is the outcome of one launch.
type Summary struct {
	RunID       string
	Total       int // Distinct commands in the runfile.
	Succeeded   int // Jobs that succeeded in this launch.
	Failed      int // Jobs that failed in this launch.
	Skipped     int // Jobs that had already succeeded.
	New         int // Commands never seen before.
	Resumed     int // Commands seen before that were run again.
	NewlyRun    int // Jobs started in this launch.
	Interrupted int // Jobs stopped by a signal, left RUNNING.
	NotStarted  int // Jobs left PENDING because the launch was stopped.
	Duplicates  int
	Orphans     int
	Failures    []*JobFailure
	StatePath   string
	LogDir      string
}

// OK reports whether every job in the runfile has now succeeded.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.Interrupted == 0 && s.NotStarted == 0
}

// Err returns the job failures as a *multierror.Error, or nil when there are none.
func (s *Summary) Err() error {
	var result *multierror.Error

	for _, f := range s.Failures {
		result = multierror.Append(result, f)
	}

	if s.Interrupted > 0 || s.NotStarted > 0 {
		result = multierror.Append(result, fmt.Errorf(
			"launch stopped: %d interrupted, %d not started, run again to resume", s.Interrupted, s.NotStarted))
	}

	return result.ErrorOrNil()
}

// TextOptions controls WriteText.
type TextOptions struct {
	ShowCommands bool // Print the command line under each failed job.
}

// WriteText prints one line per failed job followed by the counts line.
func (s *Summary) WriteText(w io.Writer, opts TextOptions) error {
	var b strings.Builder

	for _, f := range s.Failures {
		code := "-"
		if f.ExitCode != nil {
			code = fmt.Sprintf("%d", *f.ExitCode)
		}

		fmt.Fprintf(&b, "%s %s %s %s\n",
			color.Colorize("✗", color.FgRed),
			color.Colorize(identity.Short(f.Identity), color.Bold, color.FgRed),
			color.Colorize("(exit code: "+code+")", color.FgRed),
			f.LogPath,
		)

		if f.ExitCode == nil && f.Cause != nil {
			fmt.Fprintf(&b, "  %s %s\n", color.Colorize("➜ Error:", color.FgRed), f.Cause)
		}

		if opts.ShowCommands {
			fmt.Fprintf(&b, "  %s %s\n", color.Colorize("➜ Command:", color.FgHiBlack), f.Command)
		}
	}

	parts := []string{
		color.Colorize(fmt.Sprintf("%d succeeded", s.Succeeded), color.FgGreen),
		colorIf(s.Failed > 0, fmt.Sprintf("%d failed", s.Failed), color.FgRed),
		colorIf(s.Skipped > 0, fmt.Sprintf("%d skipped", s.Skipped), color.FgYellow),
		fmt.Sprintf("%d newly run", s.NewlyRun),
	}

	if s.Interrupted > 0 {
		parts = append(parts, color.Colorize(fmt.Sprintf("%d interrupted", s.Interrupted), color.FgYellow))
	}

	if s.NotStarted > 0 {
		parts = append(parts, color.Colorize(fmt.Sprintf("%d not started", s.NotStarted), color.FgYellow))
	}

	fmt.Fprintf(&b, "%s (total %d). Logs: %s\n", strings.Join(parts, ", "), s.Total, s.LogDir)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

func colorIf(cond bool, s string, codes ...color.Code) string {
	if !cond {
		return s
	}

	return color.Colorize(s, codes...)
}
