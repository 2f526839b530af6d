package deploy

import (
	"context"
	"sync"
)

// RepoLocker serializes deployments across processes sharing a working tree.
type RepoLocker interface {
	Lock(ctx context.Context, repository string) (unlock func() error, err error)
}

// repoLocks serializes requests within the process, keyed by repository path, since
// environments that share a working tree are not isolated from each other.
type repoLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newRepoLocks() *repoLocks {
	return &repoLocks{locks: make(map[string]chan struct{})}
}

func (l *repoLocks) acquire(ctx context.Context, repository string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	ch, ok := l.locks[repository]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[repository] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
