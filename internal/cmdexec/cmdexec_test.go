package cmdexec

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"simple", "go test ./...", "go", []string{"test", "./..."}, false},
		{"quoted", `sh -c "exit 3"`, "sh", []string{"-c", "exit 3"}, false},
		{"empty", "   ", "", nil, true},
		{"unterminated quote", `echo "oops`, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Parse(tt.command)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if spec.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", spec.Name, tt.wantName)
			}
			if strings.Join(spec.Args, "|") != strings.Join(tt.wantArgs, "|") {
				t.Errorf("Args = %v, want %v", spec.Args, tt.wantArgs)
			}
		})
	}
}

func TestRunCommand_Success(t *testing.T) {
	requireSh(t)

	res, err := RunCommand(context.Background(), `sh -c "echo $GREETING"`, t.TempDir(), "GREETING=hello")
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
}

func TestRunCommand_NonZeroExit(t *testing.T) {
	requireSh(t)

	_, err := RunCommand(context.Background(), `sh -c "echo boom >&2; exit 3"`, "")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", exitErr.ExitCode)
	}
	if strings.TrimSpace(exitErr.Stderr) != "boom" {
		t.Errorf("Stderr = %q, want boom", exitErr.Stderr)
	}
}

func TestExec_Timeout(t *testing.T) {
	requireSh(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Exec(ctx, Spec{Name: "sh", Args: []string{"-c", "sleep 5"}})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", exitErr.ExitCode)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped DeadlineExceeded", err)
	}
}

func TestExec_MissingBinary(t *testing.T) {
	_, err := Exec(context.Background(), Spec{Name: "gitship-definitely-not-a-binary"})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", exitErr.ExitCode)
	}
}
