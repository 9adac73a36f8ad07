// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/bogdan-kulynych/batchrun/internal/progress"
	"github.com/bogdan-kulynych/batchrun/internal/signalbroker"
)

var (
	// ErrNoExecutor is returned when a pool is run without an executor.
	ErrNoExecutor = errors.New("worker pool has no executor")
	// ErrNoStore is returned when a pool is run without a job store.
	ErrNoStore = errors.New("worker pool has no job store")
)

// Pool runs a worklist with bounded parallelism, persisting every status change.
type Pool struct {
	Store    *jobstore.Store
	Executor Executor
	Workers  int               // Maximum concurrent jobs, at least one is used.
	Reporter progress.Reporter // Optional.
	RunID    string            // Stamped on every job this pool starts.
	Signals  chan os.Signal    // Signals that stop scheduling, defaults to the termination signals.
}

// PoolResult counts what happened to each job handed to Run.
type PoolResult struct {
	Succeeded   int
	Failed      int
	Interrupted int
	NotStarted  int
	Rejected    int            // Jobs the store refused to start: unknown, or not PENDING.
	Failures    []jobstore.Job // Failed jobs in worklist order.
}

type poolState struct {
	mu       sync.Mutex
	res      PoolResult
	order    map[string]int
	storeErr error
	stopping atomic.Bool
	cancel   context.CancelFunc
}

func (s *poolState) setStoreErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storeErr == nil {
		s.storeErr = err
	}

	s.stopping.Store(true)
	s.cancel()
}

// Run executes jobs. It returns when every job has either finished or been left unstarted.
// The error is non-nil only when the store could not record progress.
func (p *Pool) Run(ctx context.Context, jobs []jobstore.Job) (*PoolResult, error) {
	if p.Executor == nil {
		return nil, ErrNoExecutor
	}

	if p.Store == nil {
		return nil, ErrNoStore
	}

	if len(jobs) == 0 {
		return &PoolResult{}, nil
	}

	workers := max(1, min(p.Workers, len(jobs)))

	logger := ctxlog.Logger(ctx).With("runnableType", "Pool")
	logger.Debug("starting worker pool", "workers", workers, "jobs", len(jobs))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := &poolState{
		order:  make(map[string]int, len(jobs)),
		cancel: cancel,
	}

	queue := make(chan jobstore.Job, len(jobs))
	for i, j := range jobs {
		st.order[j.Identity] = i
		queue <- j
	}

	close(queue)

	sigCh := p.Signals
	if sigCh == nil {
		sigCh = signalbroker.New(ctx)
		defer signalbroker.Stop(sigCh)
	}

	finished := make(chan struct{})
	sigDone := make(chan struct{})

	go func() {
		defer close(sigDone)

		select {
		case s := <-sigCh:
			logger.Info("signal received, no further jobs will be started", "signal", s.String())
			st.stopping.Store(true)
		case <-finished:
		}
	}()

	wg := &sync.WaitGroup{}
	for w := range workers {
		wg.Add(1)

		go func(worker int) {
			defer wg.Done()

			for job := range queue {
				if st.stopping.Load() || ctx.Err() != nil {
					st.mu.Lock()
					st.res.NotStarted++
					st.mu.Unlock()

					continue
				}

				p.runOne(ctxlog.New(ctx, logger.With("worker", worker)), st, job)
			}
		}(w)
	}

	wg.Wait()
	close(finished)
	<-sigDone

	slices.SortFunc(st.res.Failures, func(a, b jobstore.Job) int {
		return st.order[a.Identity] - st.order[b.Identity]
	})

	res := st.res

	logger.Debug("worker pool finished",
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"interrupted", res.Interrupted,
		"notStarted", res.NotStarted,
		"rejected", res.Rejected)

	return &res, st.storeErr
}

func (p *Pool) runOne(ctx context.Context, st *poolState, job jobstore.Job) {
	short := identity.Short(job.Identity)

	running, err := p.Store.Transition(ctx, job.Identity, jobstore.StatusRunning, func(j *jobstore.Job) {
		now := time.Now()
		j.RunID = p.RunID
		j.StartedAt = &now
		j.FinishedAt = nil
		j.ExitCode = nil
		j.Error = ""
	})
	if err != nil && !errors.Is(err, jobstore.ErrStorePersist) {
		ctxlog.Warn(ctx, "job skipped, the store refused to start it", "job", short, "error", err)

		st.mu.Lock()
		st.res.Rejected++
		st.mu.Unlock()

		return
	}

	if err != nil {
		ctxlog.Error(ctx, "could not mark job running", "job", short, "error", err)

		st.mu.Lock()
		st.res.NotStarted++
		st.mu.Unlock()

		st.setStoreErr(err)

		return
	}

	ctxlog.Info(ctx, "job started", "job", short, "command", job.Command)
	ReportJobStarted(p.Reporter, running)

	out := p.Executor.Execute(ctx, running, func(line string) {
		ReportJobOutput(p.Reporter, running, line)
	})

	ReportJobComplete(p.Reporter, running, out)

	if out.Interrupted() {
		ctxlog.Warn(ctx, "job interrupted, it will be resumed next time", "job", short, "error", out.Err)

		st.mu.Lock()
		st.res.Interrupted++
		st.mu.Unlock()

		return
	}

	next := jobstore.StatusFailed
	if out.Succeeded() {
		next = jobstore.StatusSucceeded
	}

	final, err := p.Store.Transition(ctx, job.Identity, next, func(j *jobstore.Job) {
		started := out.StartedAt
		finished := out.FinishedAt
		j.StartedAt = &started
		j.FinishedAt = &finished

		if out.Spawned() {
			code := out.ExitCode
			j.ExitCode = &code
		}

		if out.Err != nil {
			j.Error = out.Err.Error()
		}
	})
	if err != nil {
		ctxlog.Error(ctx, "could not record job outcome", "job", short, "error", err)

		if errors.Is(err, jobstore.ErrStorePersist) {
			st.setStoreErr(err)
		}

		final = running
		final.Status = next
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if next == jobstore.StatusSucceeded {
		st.res.Succeeded++
		ctxlog.Info(ctx, "job succeeded", "job", short, "duration", out.FinishedAt.Sub(out.StartedAt))

		return
	}

	st.res.Failed++
	st.res.Failures = append(st.res.Failures, final)
	ctxlog.Warn(ctx, "job failed", "job", short, "exitCode", out.ExitCode, "error", out.Err, "log", final.LogPath)
}
