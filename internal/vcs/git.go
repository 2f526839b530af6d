package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitship/gitship/internal/cmdexec"
)

// Git drives the git executable inside a working tree.
type Git struct {
	Dir    string
	Remote string
	// Timeout bounds every single git invocation. Zero means no timeout.
	Timeout time.Duration
	// Binary defaults to "git".
	Binary string
	// Env is added to the environment of every git process.
	Env []string
}

func NewGit(dir, remote string, timeout time.Duration) *Git {
	return &Git{Dir: dir, Remote: remote, Timeout: timeout}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	binary := g.Binary
	if binary == "" {
		binary = "git"
	}
	spec := cmdexec.Spec{Name: binary, Args: args, Dir: g.Dir, Env: g.Env}

	res, err := cmdexec.Exec(ctx, spec)
	if err != nil {
		return res.Stdout, fromExec(spec.String(), err)
	}
	return res.Stdout, nil
}

func (g *Git) remote() string {
	if g.Remote == "" {
		return "origin"
	}
	return g.Remote
}

func (g *Git) Fetch(ctx context.Context) (string, error) {
	return g.run(ctx, "fetch", g.remote())
}

func (g *Git) Stash(ctx context.Context) (string, error) {
	return g.run(ctx, "stash")
}

func (g *Git) Checkout(ctx context.Context, rev string) (string, error) {
	return g.run(ctx, "checkout", rev)
}

func (g *Git) Pull(ctx context.Context) (string, error) {
	return g.run(ctx, "pull")
}

// CommitAll stages every change in the working tree and commits it.
func (g *Git) CommitAll(ctx context.Context, message string) (string, error) {
	if _, err := g.run(ctx, "add", "--all"); err != nil {
		return "", err
	}
	return g.run(ctx, "commit", "-m", message)
}

func (g *Git) Push(ctx context.Context, rev string, force bool) (string, error) {
	args := []string{"push", g.remote(), rev}
	if force {
		args = append(args, "--force")
	}
	return g.run(ctx, args...)
}

func (g *Git) HardReset(ctx context.Context, stepsBack int) (string, error) {
	if stepsBack < 0 {
		return "", &Error{Command: "git reset --hard", ExitCode: -1, Stderr: fmt.Sprintf("invalid steps back: %d", stepsBack)}
	}
	return g.run(ctx, "reset", "--hard", fmt.Sprintf("HEAD~%d", stepsBack))
}

func (g *Git) WorkingTreeDirty(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *Git) Head(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "HEAD")
	return strings.TrimSpace(out), err
}
