// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/orchestrator"
	"github.com/bogdan-kulynych/batchrun/internal/progress"
	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// JobStatus is the state of a job as shown in the TUI.
type JobStatus int

const (
	StatusPending JobStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusSkipped
	StatusInterrupted
)

// String returns a string representation of the job status.
func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Finished reports whether the job will not change state again in this launch.
func (s JobStatus) Finished() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped || s == StatusInterrupted
}

// JobRow is one job in the list.
type JobRow struct {
	ID         string     // Job identity
	Command    string     // Command line
	Status     JobStatus  // Current execution status
	StartTime  *time.Time // When execution started
	EndTime    *time.Time // When execution completed
	LastOutput string     // Last line of output from this job
	ErrorMsg   string     // Error message if failed
	mutex      sync.RWMutex
}

// NewJobRow creates a pending row for command.
func NewJobRow(id, command string) *JobRow {
	return &JobRow{
		ID:      id,
		Command: command,
		Status:  StatusPending,
	}
}

// UpdateStatus safely updates the job status.
func (r *JobRow) UpdateStatus(status JobStatus) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.Status = status
	now := time.Now()

	switch status {
	case StatusRunning:
		if r.StartTime == nil {
			r.StartTime = &now
		}
	case StatusSuccess, StatusFailed, StatusInterrupted:
		if r.EndTime == nil {
			r.EndTime = &now
		}
	}
}

// UpdateOutput safely updates the last output line.
func (r *JobRow) UpdateOutput(output string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if output = strings.TrimSpace(output); output != "" {
		r.LastOutput = output
	}
}

// UpdateError safely updates the error message.
func (r *JobRow) UpdateError(err string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.ErrorMsg = err
}

// GetDisplayInfo safely retrieves display information.
func (r *JobRow) GetDisplayInfo() (JobStatus, string, string, string, *time.Time, *time.Time) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.Status, r.Command, r.LastOutput, r.ErrorMsg, r.StartTime, r.EndTime
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	rows      []*JobRow
	rowMap    map[string]*JobRow
	width     int
	height    int
	quitting  bool
	completed bool
	summary   *orchestrator.Summary
	runErr    error
	mutex     sync.RWMutex

	viewport viewport.Model
	bar      bprogress.Model
	styles   *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title       lipgloss.Style
	Pending     lipgloss.Style
	Running     lipgloss.Style
	Success     lipgloss.Style
	Failed      lipgloss.Style
	Skipped     lipgloss.Style
	Interrupted lipgloss.Style
	Output      lipgloss.Style
	Error       lipgloss.Style
	Help        lipgloss.Style
	ID          lipgloss.Style
	Border      lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Skipped: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Faint(true),
		Interrupted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		ID: lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a model listing commands in order. Repeated commands are listed once.
func NewModel(ctx context.Context, commands []string) *Model {
	m := &Model{
		ctx:      ctx,
		rowMap:   make(map[string]*JobRow, len(commands)),
		viewport: viewport.New(defaultWidth, defaultHeight),
		bar:      bprogress.New(bprogress.WithDefaultGradient()),
		styles:   NewStyles(),
	}

	for _, c := range commands {
		m.getOrCreateRow(identity.Of(c), c)
	}

	return m
}

// getOrCreateRow returns the row for id, appending one when the job is not listed yet.
func (m *Model) getOrCreateRow(id, command string) *JobRow {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if row, ok := m.rowMap[id]; ok {
		return row
	}

	row := NewJobRow(id, command)
	m.rowMap[id] = row
	m.rows = append(m.rows, row)

	return row
}

// counts returns the number of finished jobs and the number of listed jobs.
func (m *Model) counts() (int, int) {
	done := 0

	for _, r := range m.rows {
		status, _, _, _, _, _ := r.GetDisplayInfo()
		if status.Finished() {
			done++
		}
	}

	return done, len(m.rows)
}

// percent is the finished fraction of listed jobs.
func (m *Model) percent() float64 {
	done, total := m.counts()
	if total == 0 {
		return 0
	}

	return float64(done) / float64(total)
}

// processProgressEvent handles incoming progress events.
func (m *Model) processProgressEvent(event progress.Event) tea.Cmd {
	if event.JobID == "" {
		return nil
	}

	row := m.getOrCreateRow(event.JobID, event.Command)

	switch event.Type {
	case progress.EventStarted:
		row.UpdateStatus(StatusRunning)

	case progress.EventCompleted:
		row.UpdateStatus(StatusSuccess)

	case progress.EventFailed:
		row.UpdateStatus(StatusFailed)

		msg := event.Message
		if event.Data.Error != nil {
			msg = event.Data.Error.Error()
		}

		row.UpdateError(msg)

	case progress.EventInterrupted:
		row.UpdateStatus(StatusInterrupted)

	case progress.EventOutput:
		row.UpdateOutput(event.Data.OutputLine)

	case progress.EventSkipped:
		row.UpdateStatus(StatusSkipped)
	}

	return nil
}
