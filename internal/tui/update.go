// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/orchestrator"
	"github.com/bogdan-kulynych/batchrun/internal/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth                = 80
	defaultHeight               = 20
	minViewportWidth            = 20
	minStatusBarAvailableHeight = 10
	reservedLines               = 8 // title, border, progress bar and help
	commandDurationRounding     = 100 * time.Millisecond
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// LaunchCompletedMsg indicates that the launch has finished.
type LaunchCompletedMsg struct {
	Summary *orchestrator.Summary
	Err     error
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.EnableMouseCellMotion,
	)
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()
		m.mutex.Unlock()

		return m, cmd

	case ProgressEventMsg:
		progressCmd := m.processProgressEvent(msg.Event)
		return m, tea.Batch(cmd, progressCmd)

	case LaunchCompletedMsg:
		m.mutex.Lock()
		m.completed = true
		m.summary = msg.Summary
		m.runErr = msg.Err
		m.mutex.Unlock()

		return m, cmd

	case tea.QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, cmd
}

func (m *Model) updateViewportSize() {
	w := m.width - 2
	if w < minViewportWidth {
		w = minViewportWidth
	}

	h := m.height - reservedLines
	if h < 1 {
		h = 1
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.bar.Width = w
}

// handleKeyPress processes keyboard input. Scrolling keys are handled by the viewport.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var content strings.Builder

	for _, row := range m.rows {
		m.renderJobRow(&content, row)
	}

	if m.completed {
		content.WriteString("\n")
		content.WriteString(m.completionMessage())
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())

	var view strings.Builder

	done, total := m.counts()

	view.WriteString(m.styles.Title.Render(fmt.Sprintf("batchrun: %d/%d jobs finished", done, total)))
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))
	view.WriteString("\n")
	view.WriteString(m.bar.ViewAs(m.percent()))

	if m.height > minStatusBarAvailableHeight || m.height == 0 {
		helpText := "↑/↓ or j/k to scroll, PgUp/PgDn for pages, 'q' to quit"
		if m.completed {
			helpText = "↑/↓ or j/k to scroll, 'q' to quit and print the summary"
		}

		view.WriteString("\n")
		view.WriteString(m.styles.Help.Render(helpText))
	}

	return view.String()
}

func (m *Model) completionMessage() string {
	switch {
	case m.runErr != nil:
		return m.styles.Failed.Render("⚠️  Launch aborted: " + m.runErr.Error())
	case m.summary != nil && !m.summary.OK():
		return m.styles.Failed.Render(fmt.Sprintf("⚠️  Launch finished: %d succeeded, %d failed, %d skipped",
			m.summary.Succeeded, m.summary.Failed, m.summary.Skipped))
	case m.summary != nil:
		return m.styles.Success.Render(fmt.Sprintf("✅ Launch finished: %d succeeded, %d skipped",
			m.summary.Succeeded, m.summary.Skipped))
	default:
		return m.styles.Success.Render("✅ Launch finished")
	}
}

// renderJobRow renders a single job with its latest output or error on the right.
func (m *Model) renderJobRow(b *strings.Builder, row *JobRow) {
	status, command, output, errorMsg, startTime, endTime := row.GetDisplayInfo()

	var (
		statusIcon string
		style      lipgloss.Style
	)

	switch status {
	case StatusPending:
		statusIcon, style = "⏳", m.styles.Pending
	case StatusRunning:
		statusIcon, style = "⚡", m.styles.Running
	case StatusSuccess:
		statusIcon, style = "✅", m.styles.Success
	case StatusFailed:
		statusIcon, style = "❌", m.styles.Failed
	case StatusSkipped:
		statusIcon, style = "⏭️ ", m.styles.Skipped
	case StatusInterrupted:
		statusIcon, style = "⛔", m.styles.Interrupted
	default:
		statusIcon, style = "❓", m.styles.Pending
	}

	availableWidth := m.viewport.Width - 2
	if availableWidth < minViewportWidth {
		availableWidth = minViewportWidth
	}

	leftWidth := availableWidth / 2 //nolint:mnd
	rightWidth := availableWidth - leftWidth

	left := fmt.Sprintf("%s %s %s", statusIcon, m.styles.ID.Render(identity.Short(row.ID)), style.Render(command))

	if startTime != nil {
		elapsed := time.Since(*startTime)
		if endTime != nil {
			elapsed = endTime.Sub(*startTime)
		}

		left += m.styles.Output.Render(fmt.Sprintf(" (%v)", elapsed.Round(commandDurationRounding)))
	}

	var right string

	switch {
	case errorMsg != "" && status == StatusFailed:
		right = m.styles.Error.Render("Error: " + errorMsg)
	case output != "" && status == StatusRunning:
		right = m.styles.Output.Render(output)
	}

	left = lipgloss.NewStyle().Width(leftWidth).MaxWidth(leftWidth).MaxHeight(1).Render(left)
	right = lipgloss.NewStyle().MaxWidth(rightWidth).MaxHeight(1).Render(right)

	b.WriteString(left)
	b.WriteString(right)
	b.WriteString("\n")
}
