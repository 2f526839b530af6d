package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError is returned when a process ran but exited non-zero, or could not be started
// at all (ExitCode -1).
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("command %q failed with exit code %d: %s", e.Command, e.ExitCode, msg)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

const waitDelay = 2 * time.Second

// Spec describes one process invocation.
type Spec struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current process environment.
	Env []string
}

func (s Spec) String() string {
	return strings.TrimSpace(s.Name + " " + strings.Join(s.Args, " "))
}

// Exec runs the process described by spec and waits for it. A non-zero exit, a failure to
// start and a context deadline all come back as *ExitError with whatever stderr was captured.
func Exec(ctx context.Context, spec Spec) (Result, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	// Children that inherit the output pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = waitDelay
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return result, nil
	}

	result.ExitCode = -1
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, &ExitError{
			Command:  spec.String(),
			ExitCode: -1,
			Stderr:   strings.TrimSpace(result.Stderr + "\n" + ctxErr.Error()),
			Err:      ctxErr,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	return result, &ExitError{
		Command:  spec.String(),
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		Err:      err,
	}
}

// RunCommand splits a shell-like command line and executes it in workDir.
func RunCommand(ctx context.Context, command, workDir string, env ...string) (Result, error) {
	spec, err := Parse(command)
	if err != nil {
		return Result{}, err
	}
	spec.Dir = workDir
	spec.Env = env
	return Exec(ctx, spec)
}

// Parse splits a command line using shell quoting rules. No shell is involved, so pipes
// and redirects are not interpreted.
func Parse(command string) (Spec, error) {
	parts, err := shlex.Split(command)
	if err != nil {
		return Spec{}, fmt.Errorf("failed to parse command %q: %w", command, err)
	}
	if len(parts) == 0 {
		return Spec{}, errors.New("empty command")
	}
	return Spec{Name: parts[0], Args: parts[1:]}, nil
}
