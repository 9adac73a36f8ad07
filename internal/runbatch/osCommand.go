// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/bogdan-kulynych/batchrun/internal/signalbroker"
	"github.com/bogdan-kulynych/batchrun/internal/teereader"
	"github.com/spf13/afero"
)

const (
	// DefaultShell runs commands on unix-like systems.
	DefaultShell = "/bin/sh"
	// ShellEnvVar overrides the shell used to run commands.
	ShellEnvVar = "BATCHRUN_SHELL"

	windowsShell = "cmd.exe"
	logDirMode   = 0o755
	logFileMode  = 0o644

	pipeDrainTimeout = 2 * time.Second
	maxLoggedLineLen = 120
)

var _ Executor = (*OSCommand)(nil)

var (
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrCreateLog is returned when the job log file could not be opened.
	ErrCreateLog = errors.New("could not create job log")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrSignalReceived is returned when an operating system signal was forwarded to the child process.
	ErrSignalReceived = errors.New("signal received")
	// ErrDuplicateSignalReceived is returned when a duplicate signal is received, forcing process termination.
	ErrDuplicateSignalReceived = errors.New("duplicate signal received, process forcefully terminated")
	// ErrInterrupted is returned when the context ended while the process was running.
	ErrInterrupted = errors.New("interrupted, process killed")
	// ErrFailedToReadOutput is returned when the output pipe could not be copied to the log.
	ErrFailedToReadOutput = errors.New("failed to read process output")
)

// Outcome is what happened when a job was executed.
type Outcome struct {
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Spawned reports whether a process was actually started.
// A job that never spawned has no exit code.
func (o Outcome) Spawned() bool {
	return !errors.Is(o.Err, ErrCouldNotStartProcess) && !errors.Is(o.Err, ErrCreateLog)
}

// Interrupted reports whether the process was stopped by a signal or cancellation
// rather than exiting by itself.
func (o Outcome) Interrupted() bool {
	return errors.Is(o.Err, ErrSignalReceived) ||
		errors.Is(o.Err, ErrDuplicateSignalReceived) ||
		errors.Is(o.Err, ErrInterrupted)
}

// Succeeded reports whether the process exited with code 0 and nothing went wrong.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.ExitCode == 0
}

// Executor runs one job to completion.
// onOutput receives each complete line of combined stdout and stderr and may be nil.
type Executor interface {
	Execute(ctx context.Context, job jobstore.Job, onOutput func(line string)) Outcome
}

// OSCommand executes a job's command line through a shell, writing combined output to the job's log.
type OSCommand struct {
	Shell string   // Shell binary, defaults to $BATCHRUN_SHELL then DefaultShell.
	Fs    afero.Fs // File system for the log file, defaults to the OS.
	Env   []string // Extra environment variables in KEY=VALUE form.
	sigCh chan os.Signal
}

// NewOSCommand returns an executor using the given shell. An empty shell means the default.
func NewOSCommand(shell string, fs afero.Fs) *OSCommand {
	return &OSCommand{
		Shell: shell,
		Fs:    fs,
	}
}

// shellArgs returns the executable and argv used to run command.
func (c *OSCommand) shellArgs(command string) (string, []string) {
	shell := c.Shell
	if shell == "" {
		shell = os.Getenv(ShellEnvVar)
	}

	if runtime.GOOS == "windows" {
		if shell == "" {
			shell = windowsShell
		}

		return shell, []string{filepath.Base(shell), "/C", command}
	}

	if shell == "" {
		shell = DefaultShell
	}

	return shell, []string{filepath.Base(shell), "-c", command}
}

func (c *OSCommand) openLog(path string) (afero.File, error) {
	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := fs.MkdirAll(filepath.Dir(path), logDirMode); err != nil {
		return nil, errors.Join(ErrCreateLog, err)
	}

	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, logFileMode)
	if err != nil {
		return nil, errors.Join(ErrCreateLog, err)
	}

	return f, nil
}

// Execute implements Executor.
func (c *OSCommand) Execute(ctx context.Context, job jobstore.Job, onOutput func(line string)) Outcome {
	logger := ctxlog.Logger(ctx).
		With("runnableType", "OSCommand").
		With("job", job.Identity)

	res := Outcome{
		ExitCode:  -1,
		StartedAt: time.Now(),
	}

	finish := func(err error) Outcome {
		res.FinishedAt = time.Now()
		res.Err = err

		return res
	}

	logFile, err := c.openLog(job.LogPath)
	if err != nil {
		return finish(err)
	}
	defer logFile.Close() //nolint:errcheck

	path, args := c.shellArgs(job.Command)

	resolved, err := exec.LookPath(path)
	if err != nil {
		return finish(errors.Join(ErrCouldNotStartProcess, err))
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return finish(errors.Join(ErrCouldNotStartProcess, err))
	}
	defer devNull.Close() //nolint:errcheck

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return finish(errors.Join(ErrFailedToCreatePipe, ErrCouldNotStartProcess, err))
	}
	defer rOut.Close() //nolint:errcheck

	env := os.Environ()
	env = append(env, c.Env...)

	sigCh := c.sigCh
	if sigCh == nil {
		sigCh = signalbroker.New(ctx)
		defer signalbroker.Stop(sigCh)
	}

	logger.Debug("starting process", "path", resolved, "args", args)

	res.StartedAt = time.Now()

	ps, err := os.StartProcess(resolved, args, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{devNull, wOut, wOut},
		Sys:   sysProcAttr(),
	})
	if err != nil {
		_ = wOut.Close()
		return finish(errors.Join(ErrCouldNotStartProcess, err))
	}

	// The child holds its own copy of the write end.
	_ = wOut.Close()

	logger.Debug("process started", "pid", ps.Pid)

	tee := teereader.NewLastLineTeeReader(rOut, onOutput)

	var copyErr error

	copyDone := make(chan struct{})

	go func() {
		defer close(copyDone)

		if _, err := io.Copy(logFile, tee); err != nil {
			copyErr = errors.Join(ErrFailedToReadOutput, err)
		}
	}()

	done := make(chan struct{})
	watchdogErr := make(chan error, 1)

	go func() {
		watchdogErr <- watchdog(ctx, ps, sigCh, done)
	}()

	state, psErr := ps.Wait()
	close(done)

	killErr := <-watchdogErr

	if killErr != nil && !errors.Is(killErr, ErrSignalReceived) {
		// A killed child may have left descendants holding the pipe open.
		select {
		case <-copyDone:
		case <-time.After(pipeDrainTimeout):
			_ = rOut.Close()
			<-copyDone
			copyErr = nil
		}
	} else {
		<-copyDone
	}

	res.FinishedAt = time.Now()

	if state != nil {
		res.ExitCode = state.ExitCode()
	}

	res.Err = errors.Join(psErr, copyErr)

	switch {
	case killErr == nil:
	case errors.Is(killErr, ErrSignalReceived) && res.ExitCode == 0 && res.Err == nil:
		// The child handled the forwarded signal and still finished cleanly.
		logger.Debug("process exited cleanly after signal")
	default:
		res.Err = errors.Join(res.Err, killErr)
	}

	// A non-zero exit is recorded through ExitCode, not as an error.
	if res.Err != nil && res.ExitCode == 0 {
		res.ExitCode = -1
	}

	logger.Debug("process finished",
		"exitCode", res.ExitCode,
		"lines", tee.Lines(),
		"lastLine", tee.GetLastLine(maxLoggedLineLen),
		"error", res.Err,
	)

	return res
}

// watchdog forwards the first signal of each kind to the child's process group and kills the
// group on a repeated signal or when ctx ends. It returns once done is closed or the child is killed.
func watchdog(ctx context.Context, ps *os.Process, sigCh <-chan os.Signal, done <-chan struct{}) error {
	logger := ctxlog.Logger(ctx)
	signalCount := make(map[os.Signal]struct{})

	var result error

	for {
		select {
		case s := <-sigCh:
			if _, ok := signalCount[s]; ok {
				logger.Info("received duplicate signal, killing process", "signal", s.String())
				killPs(ctx, ps)

				return ErrDuplicateSignalReceived
			}

			signalCount[s] = struct{}{}

			logger.Info("received signal", "signal", s.String())

			if err := signalPs(ps, s); err != nil {
				logger.Info("failed to send signal", "signal", s.String(), "error", err)
			}

			result = ErrSignalReceived

		case <-ctx.Done():
			logger.Info("context done, killing process")
			killPs(ctx, ps)

			return ErrInterrupted

		case <-done:
			return result
		}
	}
}

// killPs kills the process.
func killPs(ctx context.Context, ps *os.Process) {
	if err := killTree(ps); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Error(ctx, "process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Info(ctx, "process killed", "pid", ps.Pid)
}

// String describes the shell used, for logging.
func (c *OSCommand) String() string {
	path, args := c.shellArgs("")
	return fmt.Sprintf("%s %s", path, args[1])
}
