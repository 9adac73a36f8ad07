// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package reconcile

import (
	"context"
	"testing"

	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logPath(id string) string {
	return "/acct/logs/" + id + ".log"
}

func newStore() *jobstore.Store {
	return jobstore.New(afero.NewMemMapFs(), "/acct/metadata.json")
}

// finish drives a job in the store to the given terminal status.
func finish(t *testing.T, s *jobstore.Store, command string, status jobstore.Status) {
	t.Helper()

	ctx := context.Background()
	id := identity.Of(command)

	if _, ok := s.Get(id); !ok {
		require.NoError(t, s.Upsert(jobstore.NewJob(id, command, logPath(id))))
	}

	_, err := s.Transition(ctx, id, jobstore.StatusRunning, nil)
	require.NoError(t, err)

	if status == jobstore.StatusRunning {
		return
	}

	_, err = s.Transition(ctx, id, status, func(j *jobstore.Job) {
		code := 0
		if status == jobstore.StatusFailed {
			code = 1
		}

		j.ExitCode = &code
	})
	require.NoError(t, err)
}

func commandsOf(jobs []jobstore.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Command)
	}

	return out
}

func TestReconcile_FirstRun(t *testing.T) {
	s := newStore()

	wl, err := Reconcile(context.Background(), s, []string{"a", "b", "c"}, Options{LogPath: logPath})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, commandsOf(wl.Jobs))
	assert.Equal(t, 3, wl.New)
	assert.Equal(t, 0, wl.Resumed)
	assert.Equal(t, 0, wl.Skipped)
	assert.Equal(t, 3, wl.Total())
	assert.Equal(t, 3, s.Len())

	for _, j := range wl.Jobs {
		assert.Equal(t, jobstore.StatusPending, j.Status)
		assert.Equal(t, logPath(j.Identity), j.LogPath)
	}
}

func TestReconcile_PartialResume(t *testing.T) {
	s := newStore()
	finish(t, s, "a", jobstore.StatusSucceeded)
	finish(t, s, "b", jobstore.StatusFailed)
	finish(t, s, "c", jobstore.StatusRunning)

	wl, err := Reconcile(context.Background(), s, []string{"a", "b", "c", "d"}, Options{LogPath: logPath})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c", "d"}, commandsOf(wl.Jobs))
	assert.Equal(t, 1, wl.Skipped)
	assert.Equal(t, 2, wl.Resumed)
	assert.Equal(t, 1, wl.New)
	assert.Equal(t, []string{"a"}, commandsOf(wl.SkippedJobs))

	for _, j := range wl.Jobs {
		stored, ok := s.Get(j.Identity)
		require.True(t, ok)
		assert.Equal(t, jobstore.StatusPending, stored.Status)
		assert.Nil(t, stored.ExitCode, "reset clears the previous outcome")
	}

	a, _ := s.Get(identity.Of("a"))
	assert.Equal(t, jobstore.StatusSucceeded, a.Status)
}

func TestReconcile_ResumeIsIdempotent(t *testing.T) {
	s := newStore()
	commands := []string{"a", "b"}

	for _, c := range commands {
		finish(t, s, c, jobstore.StatusSucceeded)
	}

	wl, err := Reconcile(context.Background(), s, commands, Options{LogPath: logPath})
	require.NoError(t, err)
	assert.Empty(t, wl.Jobs)
	assert.Equal(t, 2, wl.Skipped)
}

func TestReconcile_AppendOnlyRunsNewCommands(t *testing.T) {
	s := newStore()
	finish(t, s, "a", jobstore.StatusSucceeded)
	finish(t, s, "b", jobstore.StatusSucceeded)

	wl, err := Reconcile(context.Background(), s, []string{"a", "b", "c"}, Options{Mode: ModeResume, LogPath: logPath})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, commandsOf(wl.Jobs))
	assert.Equal(t, 1, wl.New)
}

func TestReconcile_OverwriteRerunsEverything(t *testing.T) {
	s := newStore()
	finish(t, s, "a", jobstore.StatusSucceeded)
	finish(t, s, "b", jobstore.StatusFailed)

	wl, err := Reconcile(context.Background(), s, []string{"a", "b"}, Options{Mode: ModeOverwrite, LogPath: logPath})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, commandsOf(wl.Jobs))
	assert.Equal(t, 0, wl.Skipped)
	assert.Equal(t, 2, wl.Resumed)

	a, _ := s.Get(identity.Of("a"))
	assert.Equal(t, jobstore.StatusPending, a.Status)
}

func TestReconcile_RecordsParameters(t *testing.T) {
	s := newStore()
	finish(t, s, "train --lr=0.2", jobstore.StatusFailed)

	wl, err := Reconcile(context.Background(), s, []string{"train --lr=0.1 --seed=3", "train --lr=0.2", "echo done"}, Options{LogPath: logPath})
	require.NoError(t, err)
	require.Len(t, wl.Jobs, 3)

	assert.Equal(t, map[string]string{"lr": "0.1", "seed": "3"}, wl.Jobs[0].Parameters)
	assert.Equal(t, map[string]string{"lr": "0.2"}, wl.Jobs[1].Parameters, "re-run jobs get parameters too")
	assert.Nil(t, wl.Jobs[2].Parameters)

	stored, ok := s.Get(identity.Of("train --lr=0.1 --seed=3"))
	require.True(t, ok)
	assert.Equal(t, "3", stored.Parameters["seed"])
}

func TestReconcile_DropsDuplicates(t *testing.T) {
	s := newStore()

	wl, err := Reconcile(context.Background(), s, []string{"a", "b", "a", "a"}, Options{LogPath: logPath})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, commandsOf(wl.Jobs))
	assert.Equal(t, 2, wl.Duplicates)
	assert.Equal(t, 2, s.Len())
}

func TestReconcile_WhitespaceMakesADifferentCommand(t *testing.T) {
	s := newStore()

	wl, err := Reconcile(context.Background(), s, []string{"echo a", "echo  a"}, Options{LogPath: logPath})
	require.NoError(t, err)
	assert.Len(t, wl.Jobs, 2)
	assert.Equal(t, 0, wl.Duplicates)
}

func TestReconcile_ReportsOrphans(t *testing.T) {
	s := newStore()
	finish(t, s, "removed", jobstore.StatusSucceeded)

	wl, err := Reconcile(context.Background(), s, []string{"kept"}, Options{LogPath: logPath})
	require.NoError(t, err)
	require.Len(t, wl.Orphans, 1)
	assert.Equal(t, "removed", wl.Orphans[0].Command)

	_, ok := s.Get(identity.Of("removed"))
	assert.True(t, ok, "orphans are never deleted")
}

func TestReconcile_DoesNotFlush(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := jobstore.New(fs, "/acct/metadata.json")

	_, err := Reconcile(context.Background(), s, []string{"a"}, Options{LogPath: logPath})
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/acct/metadata.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReconcile_InvalidOptions(t *testing.T) {
	_, err := Reconcile(context.Background(), newStore(), []string{"a"}, Options{Mode: "sometimes", LogPath: logPath})
	require.ErrorIs(t, err, ErrUnknownMode)

	_, err = Reconcile(context.Background(), newStore(), []string{"a"}, Options{})
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeResume, false},
		{"resume", ModeResume, false},
		{"Overwrite", ModeOverwrite, false},
		{" overwrite ", ModeOverwrite, false},
		{"replace", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownMode)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
