// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/spf13/afero"
)

const (
	dirMode      = 0o755
	tmpSuffix    = ".tmp-*"
	emptyStoreID = ""
)

var (
	// ErrCorruptStore is returned by Load when the state file exists but cannot be parsed.
	ErrCorruptStore = errors.New("job store is corrupt")
	// ErrStorePersist is returned when the state file cannot be written or replaced.
	ErrStorePersist = errors.New("failed to persist job store")
	// ErrInvalidTransition is returned when a status change would move a job backwards.
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrUnknownJob is returned when a transition names an identity that is not in the store.
	ErrUnknownJob = errors.New("unknown job")
	// ErrInvalidJob is returned by Upsert for a job without identity, command or valid status.
	ErrInvalidJob = errors.New("invalid job")
)

// Store is the durable mapping from identity to Job.
type Store struct {
	fs    afero.Fs
	path  string
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
}

// New returns an empty store that flushes to path.
func New(fs afero.Fs, path string) *Store {
	if fs == nil {
		fs = FsFactory()
	}

	return &Store{
		fs:   fs,
		path: path,
		jobs: make(map[string]*Job),
	}
}

// Load reads the store at path. A missing file is a first run and yields an empty store.
// A file that cannot be read or parsed yields an error wrapping ErrCorruptStore.
func Load(ctx context.Context, fs afero.Fs, path string) (*Store, error) {
	s := New(fs, path)

	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		ctxlog.Debug(ctx, "no job store found, starting empty", "path", path)
		return s, nil
	}

	if err != nil {
		return nil, errors.Join(ErrCorruptStore, fmt.Errorf("read %s: %w", path, err))
	}

	order, jobs, err := decode(data)
	if err != nil {
		return nil, errors.Join(ErrCorruptStore, fmt.Errorf("parse %s: %w", path, err))
	}

	s.order = order
	s.jobs = jobs

	ctxlog.Debug(ctx, "job store loaded", "path", path, "jobs", len(order))

	return s, nil
}

// Path is the file the store flushes to.
func (s *Store) Path() string {
	return s.path
}

// Len is the number of jobs in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.order)
}

// Get returns a copy of the job with the given identity.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}

	return j.clone(), true
}

// Jobs returns copies of all jobs in store order.
func (s *Store) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].clone())
	}

	return out
}

// Upsert inserts job, or overwrites the record with the same identity in place.
// It does not write to disk.
func (s *Store) Upsert(job Job) error {
	if job.Identity == emptyStoreID || job.Command == "" || !job.Status.Valid() {
		return fmt.Errorf("%w: identity=%q status=%q", ErrInvalidJob, job.Identity, job.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(job)

	return nil
}

func (s *Store) upsertLocked(job Job) {
	c := job.clone()

	if _, ok := s.jobs[job.Identity]; !ok {
		s.order = append(s.order, job.Identity)
	}

	s.jobs[job.Identity] = &c
}

// Transition moves the job to next, lets mutate fill in outcome fields, and flushes.
// The status change is checked against Status.CanTransitionTo before anything is written.
func (s *Store) Transition(ctx context.Context, id string, next Status, mutate func(*Job)) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}

	if !cur.Status.CanTransitionTo(next) {
		return Job{}, fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, cur.Status, next, id)
	}

	j := cur.clone()
	j.Status = next

	if mutate != nil {
		mutate(&j)
	}

	j.Identity = id
	j.Status = next
	s.upsertLocked(j)

	if err := s.flushLocked(ctx); err != nil {
		return Job{}, err
	}

	return j.clone(), nil
}

// Flush writes the whole mapping to disk atomically.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked(ctx)
}

func (s *Store) flushLocked(ctx context.Context) error {
	data, err := encode(s.order, s.jobs)
	if err != nil {
		return errors.Join(ErrStorePersist, err)
	}

	if err := writeFileAtomic(s.fs, s.path, data); err != nil {
		return errors.Join(ErrStorePersist, err)
	}

	ctxlog.Debug(ctx, "job store flushed", "path", s.path, "jobs", len(s.order), "bytes", len(data))

	return nil
}

// writeFileAtomic writes data next to path and renames it into place.
// A crash at any point leaves either the old file or the new one, never a mix.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, filepath.Base(path)+tmpSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)

		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)

		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}

	return syncDir(fs, dir)
}

// syncDir makes a rename inside dir durable. Only the OS file system has anything to sync,
// and Windows cannot sync a directory handle.
func syncDir(fs afero.Fs, dir string) error {
	if _, ok := fs.(*afero.OsFs); !ok || runtime.GOOS == "windows" {
		return nil
	}

	d, err := fs.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir %s: %w", dir, err)
	}

	defer d.Close() //nolint:errcheck

	if err := d.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}

	return nil
}
