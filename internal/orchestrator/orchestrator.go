// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/bogdan-kulynych/batchrun/internal/progress"
	"github.com/bogdan-kulynych/batchrun/internal/reconcile"
	"github.com/bogdan-kulynych/batchrun/internal/runbatch"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	// DefaultStateFileName is the job store file inside the accounting directory.
	DefaultStateFileName = "metadata.json"
	// DefaultRunsDir holds one accounting directory per runfile unless one is given.
	DefaultRunsDir = "runs"
	// LogDirName is the per-job log directory inside the accounting directory.
	LogDirName = "logs"
	// LogFileExt is appended to a job identity to name its log file.
	LogFileExt = ".log"

	dirMode = 0o755
)

var (
	// ErrInvalidWorkers is returned when fewer than one worker is requested.
	ErrInvalidWorkers = errors.New("number of jobs must be at least 1")
	// ErrNoName is returned when neither an accounting directory nor a runfile name is given.
	ErrNoName = errors.New("launch needs a runfile name or an accounting directory")
)

// Options configures a launch.
type Options struct {
	Name          string            // Runfile stem, used for the default accounting directory.
	Commands      []string          // Runfile commands in order.
	AccountingDir string            // Defaults to runs/<Name>.
	StateFileName string            // Defaults to metadata.json.
	Workers       int               // Parallel jobs, at least 1.
	Mode          reconcile.Mode    // Defaults to resume.
	Fs            afero.Fs          // Defaults to the OS file system.
	Executor      runbatch.Executor // Defaults to an OSCommand using the default shell.
	Reporter      progress.Reporter // Optional.
	Signals       chan os.Signal    // Signals that stop scheduling, defaults to the termination signals.
}

// Layout resolves where a launch keeps its state.
type Layout struct {
	AccountingDir string
	StatePath     string
	LogDir        string
}

// LogPath is the log file of the job with the given identity.
func (l Layout) LogPath(id string) string {
	return filepath.Join(l.LogDir, id+LogFileExt)
}

// ResolveLayout applies the defaults for the accounting directory and state file name.
func ResolveLayout(name, accountingDir, stateFileName string) (Layout, error) {
	if accountingDir == "" {
		if name == "" {
			return Layout{}, ErrNoName
		}

		accountingDir = filepath.Join(DefaultRunsDir, name)
	}

	if stateFileName == "" {
		stateFileName = DefaultStateFileName
	}

	return Layout{
		AccountingDir: accountingDir,
		StatePath:     filepath.Join(accountingDir, stateFileName),
		LogDir:        filepath.Join(accountingDir, LogDirName),
	}, nil
}

func (o *Options) defaults() error {
	if o.Workers < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidWorkers, o.Workers)
	}

	if o.Fs == nil {
		o.Fs = jobstore.FsFactory()
	}

	if o.Executor == nil {
		o.Executor = runbatch.NewOSCommand("", o.Fs)
	}

	if o.Reporter == nil {
		o.Reporter = progress.NewNullReporter()
	}

	if o.Mode == "" {
		o.Mode = reconcile.ModeResume
	}

	return nil
}

// Launch runs the outstanding commands of a runfile and summarises the outcome.
//
// An error is returned when the job store cannot be loaded or persisted; in the latter case the
// summary of what happened so far is returned alongside it. Job failures are not errors, they are
// reported through the summary.
func Launch(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}

	layout, err := ResolveLayout(opts.Name, opts.AccountingDir, opts.StateFileName)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := ctxlog.Logger(ctx).With("run", runID)
	ctx = ctxlog.New(ctx, logger)

	if err := opts.Fs.MkdirAll(layout.LogDir, dirMode); err != nil {
		return nil, fmt.Errorf("create accounting dir: %w", err)
	}

	store, err := jobstore.Load(ctx, opts.Fs, layout.StatePath)
	if err != nil {
		return nil, err
	}

	wl, err := reconcile.Reconcile(ctx, store, opts.Commands, reconcile.Options{
		Mode:    opts.Mode,
		LogPath: layout.LogPath,
	})
	if err != nil {
		return nil, err
	}

	if err := store.Flush(ctx); err != nil {
		return nil, err
	}

	for _, j := range wl.SkippedJobs {
		runbatch.ReportJobSkipped(opts.Reporter, j)
	}

	logger.Info("launching",
		"jobs", len(wl.Jobs),
		"skipped", wl.Skipped,
		"workers", opts.Workers,
		"state", layout.StatePath)

	pool := &runbatch.Pool{
		Store:    store,
		Executor: opts.Executor,
		Workers:  opts.Workers,
		Reporter: opts.Reporter,
		RunID:    runID,
		Signals:  opts.Signals,
	}

	res, runErr := pool.Run(ctx, wl.Jobs)
	if res == nil {
		res = &runbatch.PoolResult{}
	}

	// The final flush is attempted even when the launch was cancelled.
	flushErr := store.Flush(context.WithoutCancel(ctx))

	summary := &Summary{
		RunID:       runID,
		Total:       wl.Total(),
		Succeeded:   res.Succeeded,
		Failed:      res.Failed,
		Skipped:     wl.Skipped,
		New:         wl.New,
		Resumed:     wl.Resumed,
		NewlyRun:    res.Succeeded + res.Failed + res.Interrupted,
		Interrupted: res.Interrupted,
		NotStarted:  res.NotStarted,
		Duplicates:  wl.Duplicates,
		Orphans:     len(wl.Orphans),
		StatePath:   store.Path(),
		LogDir:      layout.LogDir,
	}

	for _, j := range res.Failures {
		summary.Failures = append(summary.Failures, newJobFailure(j))
	}

	if err := errors.Join(runErr, flushErr); err != nil {
		return summary, err
	}

	return summary, nil
}
