// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a real-time update about one job.
type Event struct {
	JobID     string    // Job identity
	Command   string    // Command line of the job
	Type      EventType // What happened
	Message   string    // Human-readable status message
	Timestamp time.Time // When the event occurred
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a job has begun execution.
	EventStarted EventType = iota
	// EventOutput indicates a new line of output is available.
	EventOutput
	// EventCompleted indicates the job exited with code 0.
	EventCompleted
	// EventFailed indicates the job exited non-zero or could not start.
	EventFailed
	// EventSkipped indicates the job already succeeded in an earlier invocation.
	EventSkipped
	// EventInterrupted indicates the job was stopped by a signal and will be resumed next time.
	EventInterrupted
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventOutput:
		return "output"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	case EventInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For EventOutput
	OutputLine string

	// For EventCompleted/EventFailed
	ExitCode int
	Error    error
	Duration time.Duration
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends a progress event. Implementations must not block.
	Report(event Event)
	// Close signals that no more events will be sent.
	Close()
}

// Listener receives progress events.
type Listener interface {
	OnEvent(event Event)
}

// NullReporter is a no-op implementation of Reporter.
type NullReporter struct{}

// Report does nothing.
func (nr *NullReporter) Report(_ Event) {}

// Close does nothing.
func (nr *NullReporter) Close() {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return &NullReporter{}
}

// Started builds an EventStarted for the given job.
func Started(id, command string) Event {
	return Event{
		JobID:     id,
		Command:   command,
		Type:      EventStarted,
		Message:   "started",
		Timestamp: time.Now(),
	}
}

// Output builds an EventOutput carrying one line.
func Output(id, command, line string) Event {
	return Event{
		JobID:     id,
		Command:   command,
		Type:      EventOutput,
		Timestamp: time.Now(),
		Data:      EventData{OutputLine: line},
	}
}
