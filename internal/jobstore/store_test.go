// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "/acct/metadata.json"

// renameErrorFS fails every Rename, leaving everything else to the wrapped fs.
type renameErrorFS struct {
	afero.Fs
}

func (renameErrorFS) Rename(_, _ string) error {
	return os.ErrPermission
}

func newJob(id string) Job {
	return NewJob(id, "echo "+id, filepath.Join("/acct/logs", id+".log"))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := Load(context.Background(), fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, testPath, s.Path())

	exists, err := afero.Exists(fs, testPath)
	require.NoError(t, err)
	assert.False(t, exists, "load must not create the state file")
}

func TestLoad_CorruptStore(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"truncated", `{"abc": {"command": "echo", "status": "PENDING"`},
		{"not an object", `["abc"]`},
		{"garbage", "not json at all"},
		{"unknown status", `{"abc": {"command": "echo", "status": "DONE"}}`},
		{"missing command", `{"abc": {"status": "PENDING"}}`},
		{"duplicate identity", `{"abc": {"command": "a", "status": "PENDING"}, "abc": {"command": "a", "status": "PENDING"}}`},
		{"trailing data", `{} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, testPath, []byte(tt.content), 0o644))

			_, err := Load(context.Background(), fs, testPath)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptStore)
		})
	}
}

func TestLoad_UsesFsFactory(t *testing.T) {
	mem := afero.NewMemMapFs()
	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return mem })
	defer stubs.Reset()

	s := New(nil, testPath)
	require.NoError(t, s.Upsert(newJob("a")))
	require.NoError(t, s.Flush(context.Background()))

	exists, err := afero.Exists(mem, testPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_RoundTripPreservesOrderAndFields(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := New(fs, testPath)

	ids := []string{"zz", "aa", "mm"}
	for _, id := range ids {
		require.NoError(t, s.Upsert(newJob(id)))
	}

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Second)

	withParams := newJob("mm")
	withParams.Parameters = map[string]string{"lr": "0.1", "name": "two words"}
	require.NoError(t, s.Upsert(withParams))

	_, err := s.Transition(ctx, "aa", StatusRunning, func(j *Job) {
		j.RunID = "run-1"
		j.StartedAt = &start
	})
	require.NoError(t, err)

	_, err = s.Transition(ctx, "aa", StatusFailed, func(j *Job) {
		code := 2
		j.ExitCode = &code
		j.Error = "exit status 2"
		j.FinishedAt = &end
	})
	require.NoError(t, err)

	loaded, err := Load(ctx, fs, testPath)
	require.NoError(t, err)

	jobs := loaded.Jobs()
	require.Len(t, jobs, 3)

	for i, id := range ids {
		assert.Equal(t, id, jobs[i].Identity)
	}

	aa, ok := loaded.Get("aa")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, aa.Status)
	require.NotNil(t, aa.ExitCode)
	assert.Equal(t, 2, *aa.ExitCode)
	assert.Equal(t, "exit status 2", aa.Error)
	assert.Equal(t, "run-1", aa.RunID)
	assert.Equal(t, time.Second, aa.Duration())
	assert.Equal(t, "echo aa", aa.Command)
	assert.Equal(t, "/acct/logs/aa.log", aa.LogPath)
	assert.Nil(t, aa.Parameters)

	mm, ok := loaded.Get("mm")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"lr": "0.1", "name": "two words"}, mm.Parameters)

	raw, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"parameters": {`)
	assert.Equal(t, 1, strings.Count(string(raw), `"parameters"`))
}

func TestStore_EmptyFlushIsLoadable(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	require.NoError(t, New(fs, testPath).Flush(ctx))

	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	s, err := Load(ctx, fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_UpsertOverwritesInPlace(t *testing.T) {
	s := New(afero.NewMemMapFs(), testPath)
	require.NoError(t, s.Upsert(newJob("a")))
	require.NoError(t, s.Upsert(newJob("b")))

	j := newJob("a")
	j.Status = StatusSucceeded
	require.NoError(t, s.Upsert(j))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Identity)
	assert.Equal(t, StatusSucceeded, jobs[0].Status)
}

func TestStore_UpsertRejectsInvalidJob(t *testing.T) {
	s := New(afero.NewMemMapFs(), testPath)

	assert.ErrorIs(t, s.Upsert(Job{Command: "x", Status: StatusPending}), ErrInvalidJob)
	assert.ErrorIs(t, s.Upsert(Job{Identity: "a", Status: StatusPending}), ErrInvalidJob)
	assert.ErrorIs(t, s.Upsert(Job{Identity: "a", Command: "x", Status: "weird"}), ErrInvalidJob)
	assert.Equal(t, 0, s.Len())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New(afero.NewMemMapFs(), testPath)
	require.NoError(t, s.Upsert(newJob("a")))

	j, ok := s.Get("a")
	require.True(t, ok)
	j.Command = "changed"

	again, _ := s.Get("a")
	assert.Equal(t, "echo a", again.Command)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_TransitionRejectsBackwardsMoves(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := New(fs, testPath)
	require.NoError(t, s.Upsert(newJob("a")))

	_, err := s.Transition(ctx, "a", StatusSucceeded, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	exists, _ := afero.Exists(fs, testPath)
	assert.False(t, exists, "a rejected transition must not flush")

	_, err = s.Transition(ctx, "a", StatusRunning, nil)
	require.NoError(t, err)

	_, err = s.Transition(ctx, "a", StatusSucceeded, nil)
	require.NoError(t, err)

	_, err = s.Transition(ctx, "a", StatusRunning, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Transition(ctx, "missing", StatusRunning, nil)
	require.ErrorIs(t, err, ErrUnknownJob)
}

func TestStore_TransitionMutateCannotChangeStatusOrIdentity(t *testing.T) {
	s := New(afero.NewMemMapFs(), testPath)
	require.NoError(t, s.Upsert(newJob("a")))

	j, err := s.Transition(context.Background(), "a", StatusRunning, func(j *Job) {
		j.Status = StatusSucceeded
		j.Identity = "b"
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, j.Status)
	assert.Equal(t, "a", j.Identity)
	assert.Equal(t, 1, s.Len())
}

func TestStore_TransitionFlushesEveryChange(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := New(fs, testPath)
	require.NoError(t, s.Upsert(newJob("a")))

	_, err := s.Transition(ctx, "a", StatusRunning, nil)
	require.NoError(t, err)

	onDisk, err := Load(ctx, fs, testPath)
	require.NoError(t, err)

	j, _ := onDisk.Get("a")
	assert.Equal(t, StatusRunning, j.Status)
}

func TestStore_FlushFailureKeepsPreviousFile(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()

	s := New(mem, testPath)
	require.NoError(t, s.Upsert(newJob("a")))
	require.NoError(t, s.Flush(ctx))

	before, err := afero.ReadFile(mem, testPath)
	require.NoError(t, err)

	broken := New(renameErrorFS{Fs: mem}, testPath)
	require.NoError(t, broken.Upsert(newJob("a")))
	require.NoError(t, broken.Upsert(newJob("b")))

	err = broken.Flush(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorePersist)
	assert.ErrorIs(t, err, os.ErrPermission)

	after, err := afero.ReadFile(mem, testPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := afero.ReadDir(mem, filepath.Dir(testPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be cleaned up")
}

func TestLoad_IgnoresStaleTempFiles(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	s := New(fs, testPath)
	require.NoError(t, s.Upsert(newJob("a")))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, afero.WriteFile(fs, testPath+".tmp-123", []byte(`{"half`), 0o644))

	loaded, err := Load(ctx, fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}

func TestStore_ConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := New(fs, testPath)

	const n = 50
	for i := range n {
		require.NoError(t, s.Upsert(newJob(fmt.Sprintf("job-%02d", i))))
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)

		go func(id string) {
			defer wg.Done()

			_, err := s.Transition(ctx, id, StatusRunning, nil)
			assert.NoError(t, err)

			_, err = s.Transition(ctx, id, StatusSucceeded, func(j *Job) {
				code := 0
				j.ExitCode = &code
			})
			assert.NoError(t, err)
		}(fmt.Sprintf("job-%02d", i))
	}

	wg.Wait()

	loaded, err := Load(ctx, fs, testPath)
	require.NoError(t, err)
	require.Equal(t, n, loaded.Len())

	for i, j := range loaded.Jobs() {
		assert.Equal(t, fmt.Sprintf("job-%02d", i), j.Identity)
		assert.Equal(t, StatusSucceeded, j.Status)
	}
}

func TestStore_FlushOnOsFs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acct", "metadata.json")

	s := New(afero.NewOsFs(), path)
	require.NoError(t, s.Upsert(newJob("aa")))
	require.NoError(t, s.Flush(context.Background()))

	loaded, err := Load(context.Background(), afero.NewOsFs(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestSyncDir(t *testing.T) {
	assert.NoError(t, syncDir(afero.NewMemMapFs(), "/does/not/matter"))

	if runtime.GOOS == "windows" {
		t.Skip("directories cannot be synced on windows")
	}

	osFs := afero.NewOsFs()
	assert.NoError(t, syncDir(osFs, t.TempDir()))
	assert.Error(t, syncDir(osFs, filepath.Join(t.TempDir(), "missing")))
}
