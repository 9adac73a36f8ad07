// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobstore

import (
	"time"
)

// Status is the lifecycle state of a job.
// These values are persisted and are part of the on-disk format.
type Status string

const (
	// StatusPending means the job is queued for this invocation and has not started.
	StatusPending Status = "PENDING"
	// StatusRunning means a worker started the job and no outcome was recorded yet.
	// Found on disk at startup it means the previous invocation died mid-job.
	StatusRunning Status = "RUNNING"
	// StatusSucceeded means the command exited with code 0.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed means the command exited non-zero or could not be started.
	StatusFailed Status = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	}

	return false
}

// Terminal reports whether s is an outcome.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CanTransitionTo reports whether a job may move from s to next.
// Status only moves forward: PENDING -> RUNNING -> SUCCEEDED | FAILED.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next.Terminal()
	default:
		return false
	}
}

// Job is the record of one command identity.
type Job struct {
	Identity   string            `json:"-"`
	Command    string            `json:"command"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Status     Status            `json:"status"`
	LogPath    string            `json:"log_path"`
	ExitCode   *int              `json:"exit_code,omitempty"`
	Error      string            `json:"error,omitempty"`
	RunID      string            `json:"run_id,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// NewJob returns a PENDING job for command.
func NewJob(id, command, logPath string) Job {
	return Job{
		Identity: id,
		Command:  command,
		Status:   StatusPending,
		LogPath:  logPath,
	}
}

// Reset starts a new lifecycle: the job goes back to PENDING and its previous outcome is cleared.
func (j *Job) Reset() {
	j.Status = StatusPending
	j.ExitCode = nil
	j.Error = ""
	j.RunID = ""
	j.StartedAt = nil
	j.FinishedAt = nil
}

// Duration is the wall time between start and finish, or zero if either is missing.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}

	return j.FinishedAt.Sub(*j.StartedAt)
}

// clone returns a copy that shares no pointers with j.
func (j Job) clone() Job {
	c := j

	if j.Parameters != nil {
		c.Parameters = make(map[string]string, len(j.Parameters))
		for k, v := range j.Parameters {
			c.Parameters[k] = v
		}
	}

	if j.ExitCode != nil {
		v := *j.ExitCode
		c.ExitCode = &v
	}

	if j.StartedAt != nil {
		v := *j.StartedAt
		c.StartedAt = &v
	}

	if j.FinishedAt != nil {
		v := *j.FinishedAt
		c.FinishedAt = &v
	}

	return c
}
