// Package repolock takes an advisory file lock on a repository so that gitship processes
// sharing a working tree do not interleave deployments.
package repolock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gitship/gitship/internal/constants"
)

// LockFileName is created inside the repository's .git directory.
const LockFileName = "gitship.lock"

var ErrLocked = errors.New("repository is locked by another process")

// Locker acquires repository locks, polling until the lock is free or ctx is done.
type Locker struct {
	PollInterval time.Duration
}

func New() *Locker {
	return &Locker{PollInterval: 200 * time.Millisecond}
}

// Lock blocks until the lock for repository is held. The returned func releases it.
func (l *Locker) Lock(ctx context.Context, repository string) (func() error, error) {
	path := lockPath(repository)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, constants.ModeFileDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	interval := l.PollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	for {
		err := tryLock(f)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrLocked) {
			f.Close()
			return nil, err
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
		case <-time.After(interval):
		}
	}

	return func() error {
		unlockErr := unlock(f)
		closeErr := f.Close()
		return errors.Join(unlockErr, closeErr)
	}, nil
}

// lockPath puts the lock under .git when the repository has one, so it never shows up as
// an untracked file.
func lockPath(repository string) string {
	gitDir := filepath.Join(repository, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, LockFileName)
	}
	return filepath.Join(repository, "."+LockFileName)
}
