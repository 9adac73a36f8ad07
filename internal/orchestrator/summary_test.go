// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bogdan-kulynych/batchrun/internal/color"
	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noColour(t *testing.T) {
	t.Helper()

	prev := color.SetEnabled(false)
	t.Cleanup(func() { color.SetEnabled(prev) })
}

func exitCode(n int) *int {
	return &n
}

func TestSummary_OK(t *testing.T) {
	assert.True(t, (&Summary{Succeeded: 3}).OK())
	assert.False(t, (&Summary{Failed: 1}).OK())
	assert.False(t, (&Summary{Interrupted: 1}).OK())
	assert.False(t, (&Summary{NotStarted: 2}).OK())
}

func TestSummary_Err(t *testing.T) {
	assert.NoError(t, (&Summary{Succeeded: 1}).Err())

	s := &Summary{
		Failed: 2,
		Failures: []*JobFailure{
			newJobFailure(jobstore.Job{Identity: identity.Of("false"), Command: "false", ExitCode: exitCode(1), LogPath: "l1"}),
			newJobFailure(jobstore.Job{Identity: identity.Of("nope"), Command: "nope", Error: "exec: not found", LogPath: "l2"}),
		},
	}

	err := s.Err()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)

	var jf *JobFailure
	require.ErrorAs(t, err, &jf)
	assert.Equal(t, "false", jf.Command)

	assert.ErrorIs(t, err, ErrSpawn)
	assert.Contains(t, err.Error(), "exited with code 1")
}

func TestSummary_ErrStopped(t *testing.T) {
	err := (&Summary{Interrupted: 1, NotStarted: 2}).Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 interrupted, 2 not started")
}

func TestJobFailure_Unwrap(t *testing.T) {
	f := newJobFailure(jobstore.Job{Identity: "x", Command: "c", ExitCode: exitCode(2), Error: "boom"})
	assert.EqualError(t, errors.Unwrap(f), "boom")

	f = newJobFailure(jobstore.Job{Identity: "x", Command: "c", ExitCode: exitCode(2)})
	assert.NoError(t, errors.Unwrap(f))
}

func TestSummary_WriteText(t *testing.T) {
	noColour(t)

	id := identity.Of("false")
	s := &Summary{
		Total:     4,
		Succeeded: 1,
		Failed:    1,
		Skipped:   2,
		NewlyRun:  2,
		LogDir:    "runs/jobs/logs",
		Failures: []*JobFailure{
			newJobFailure(jobstore.Job{Identity: id, Command: "false", ExitCode: exitCode(1), LogPath: "runs/jobs/logs/" + id + ".log"}),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf, TextOptions{ShowCommands: true}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "✗ "+identity.Short(id)+" (exit code: 1) runs/jobs/logs/"+id+".log", lines[0])
	assert.Equal(t, "  ➜ Command: false", lines[1])
	assert.Equal(t, "1 succeeded, 1 failed, 2 skipped, 2 newly run (total 4). Logs: runs/jobs/logs", lines[2])
}

func TestSummary_WriteTextStopped(t *testing.T) {
	noColour(t)

	s := &Summary{Total: 3, Succeeded: 1, NewlyRun: 2, Interrupted: 1, NotStarted: 1, LogDir: "logs"}

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf, TextOptions{}))
	assert.Equal(t,
		"1 succeeded, 0 failed, 0 skipped, 2 newly run, 1 interrupted, 1 not started (total 3). Logs: logs\n",
		buf.String())
}

func TestSummary_WriteTextSpawnFailure(t *testing.T) {
	noColour(t)

	s := &Summary{
		Failed: 1,
		Failures: []*JobFailure{
			newJobFailure(jobstore.Job{Identity: identity.Of("x"), Command: "x", Error: "no shell", LogPath: "x.log"}),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf, TextOptions{}))
	assert.Contains(t, buf.String(), "(exit code: -)")
	assert.Contains(t, buf.String(), "➜ Error: command could not be started: no shell")
}
