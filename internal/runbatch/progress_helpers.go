// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"time"

	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/bogdan-kulynych/batchrun/internal/progress"
)

// ReportJobStarted reports that a job has started.
// If reporter is nil, this is a no-op.
func ReportJobStarted(reporter progress.Reporter, job jobstore.Job) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Started(job.Identity, job.Command))
}

// ReportJobSkipped reports that a job already succeeded and will not run.
func ReportJobSkipped(reporter progress.Reporter, job jobstore.Job) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Event{
		JobID:     job.Identity,
		Command:   job.Command,
		Type:      progress.EventSkipped,
		Message:   "already succeeded",
		Timestamp: time.Now(),
	})
}

// ReportJobOutput reports one line of job output.
func ReportJobOutput(reporter progress.Reporter, job jobstore.Job, line string) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Output(job.Identity, job.Command, line))
}

// ReportJobComplete reports the job's outcome as completed, failed or interrupted.
func ReportJobComplete(reporter progress.Reporter, job jobstore.Job, out Outcome) {
	if reporter == nil {
		return
	}

	ev := progress.Event{
		JobID:     job.Identity,
		Command:   job.Command,
		Timestamp: time.Now(),
		Data: progress.EventData{
			ExitCode: out.ExitCode,
			Error:    out.Err,
			Duration: out.FinishedAt.Sub(out.StartedAt),
		},
	}

	switch {
	case out.Interrupted():
		ev.Type = progress.EventInterrupted
		ev.Message = "interrupted"
	case out.Succeeded():
		ev.Type = progress.EventCompleted
		ev.Message = "succeeded"
	case !out.Spawned():
		ev.Type = progress.EventFailed
		ev.Message = fmt.Sprintf("%s could not start", identity.Short(job.Identity))
	default:
		ev.Type = progress.EventFailed
		ev.Message = fmt.Sprintf("exit code %d", out.ExitCode)
	}

	reporter.Report(ev)
}
