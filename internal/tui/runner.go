// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"sync"

	"github.com/bogdan-kulynych/batchrun/internal/orchestrator"
	"github.com/bogdan-kulynych/batchrun/internal/progress"
	tea "github.com/charmbracelet/bubbletea"
)

var _ progress.Reporter = (*TUIReporter)(nil)

// LaunchFunc runs a launch, sending its progress to reporter.
type LaunchFunc func(ctx context.Context, reporter progress.Reporter) (*orchestrator.Summary, error)

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *TUIReporter
	mutex    sync.Mutex
}

// sender is the part of tea.Program the reporter needs.
type sender interface {
	Send(msg tea.Msg)
}

// TUIReporter implements progress.Reporter and forwards events to the TUI.
type TUIReporter struct {
	program sender
	closed  bool
	mutex   sync.RWMutex
}

// NewTUIReporter creates a new TUI progress reporter.
func NewTUIReporter(program *tea.Program) *TUIReporter {
	r := &TUIReporter{}
	if program != nil {
		r.program = program
	}

	return r
}

// Report implements progress.Reporter.
func (tr *TUIReporter) Report(event progress.Event) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	if tr.closed || tr.program == nil {
		return
	}

	// Send blocks until the program reads the message, or returns at once after the program exits.
	tr.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (tr *TUIReporter) Close() {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	tr.closed = true
}

// NewRunner creates a runner that lists commands.
func NewRunner(ctx context.Context, commands []string, opts ...tea.ProgramOption) *Runner {
	model := NewModel(ctx, commands)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewTUIReporter(program),
	}
}

// Reporter returns the progress reporter for this runner.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the TUI and the launch. Once the launch finishes the TUI stays open until the
// user quits. Quitting early does not stop the launch; it runs to completion headless.
func (r *Runner) Run(ctx context.Context, launch LaunchFunc) (*orchestrator.Summary, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	type launchResult struct {
		summary *orchestrator.Summary
		err     error
	}

	resultChan := make(chan launchResult, 1)

	go func() {
		s, err := launch(ctx, r.reporter)
		resultChan <- launchResult{summary: s, err: err}
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var (
		res    launchResult
		tuiErr error
	)

	select {
	case res = <-resultChan:
		r.program.Send(LaunchCompletedMsg{Summary: res.summary, Err: res.err})
		tuiErr = <-tuiDone

		r.reporter.Close()

	case tuiErr = <-tuiDone:
		r.reporter.Close()
		res = <-resultChan
	}

	if res.err != nil {
		return res.summary, res.err
	}

	return res.summary, ignoreKilled(tuiErr)
}

// ignoreKilled drops the error a program returns when its context is cancelled.
func ignoreKilled(err error) error {
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}

	return err
}
