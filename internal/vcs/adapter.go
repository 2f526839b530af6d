package vcs

import "context"

// Adapter is the set of version-control operations a deployment is built from. Every
// operation either completes, returning the tool's output, or fails with *Error. Adapters
// hold no revision state and never retry on their own; see WithRetry.
type Adapter interface {
	Fetch(ctx context.Context) (string, error)
	Stash(ctx context.Context) (string, error)
	Checkout(ctx context.Context, rev string) (string, error)
	Pull(ctx context.Context) (string, error)
	CommitAll(ctx context.Context, message string) (string, error)
	Push(ctx context.Context, rev string, force bool) (string, error)
	HardReset(ctx context.Context, stepsBack int) (string, error)
	WorkingTreeDirty(ctx context.Context) (bool, error)
	Head(ctx context.Context) (string, error)
}
