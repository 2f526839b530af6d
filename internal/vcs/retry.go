package vcs

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures WithRetry. MaxRetries of zero disables retrying.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// OnRetry is called before each retry. Optional.
	OnRetry func(op string, err error, wait time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
	}
}

// retrying decorates an Adapter with retries for the operations that talk to the remote
// (fetch, pull, push). Local working-tree operations are passed through untouched.
type retrying struct {
	Adapter
	policy RetryPolicy
}

// WithRetry wraps next so remote operations are retried with exponential backoff.
func WithRetry(next Adapter, policy RetryPolicy) Adapter {
	if policy.MaxRetries <= 0 {
		return next
	}
	return &retrying{Adapter: next, policy: policy}
}

func (r *retrying) do(ctx context.Context, op string, fn func() (string, error)) (string, error) {
	eb := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		eb.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		eb.MaxInterval = r.policy.MaxInterval
	}
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.policy.MaxRetries)), ctx)

	var out string
	err := backoff.RetryNotify(func() error {
		var err error
		out, err = fn()
		return err
	}, b, func(err error, wait time.Duration) {
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(op, err, wait)
		}
	})
	if err != nil {
		var vcsErr *Error
		if !errors.As(err, &vcsErr) {
			err = &Error{Command: op, ExitCode: -1, Err: err}
		}
	}
	return out, err
}

func (r *retrying) Fetch(ctx context.Context) (string, error) {
	return r.do(ctx, "fetch", func() (string, error) { return r.Adapter.Fetch(ctx) })
}

func (r *retrying) Pull(ctx context.Context) (string, error) {
	return r.do(ctx, "pull", func() (string, error) { return r.Adapter.Pull(ctx) })
}

func (r *retrying) Push(ctx context.Context, rev string, force bool) (string, error) {
	return r.do(ctx, "push", func() (string, error) { return r.Adapter.Push(ctx, rev, force) })
}
