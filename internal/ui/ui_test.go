package ui

import (
	"bytes"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	t.Cleanup(func() { Output = prev })
	return &buf
}

func TestTable_AlignsColumns(t *testing.T) {
	buf := captureOutput(t)

	Table([]string{"ID", "REVISION"}, [][]string{
		{"1", "main"},
		{"22", "feature-x"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "1   main") {
		t.Errorf("row 1 = %q, want aligned columns", lines[1])
	}
	if !strings.HasPrefix(lines[2], "22  feature-x") {
		t.Errorf("row 2 = %q, want aligned columns", lines[2])
	}
}

func TestPrefixedUI(t *testing.T) {
	buf := captureOutput(t)

	p := &PrefixedUI{Prefix: "staging: "}
	p.Info("deploying %s", "feature-x")

	if !strings.Contains(buf.String(), "staging: deploying feature-x") {
		t.Errorf("output = %q, want prefixed message", buf.String())
	}
}

func TestDebug_Disabled(t *testing.T) {
	buf := captureOutput(t)
	DebugEnabled = false

	Debug("should not appear")

	if buf.Len() != 0 {
		t.Errorf("Debug wrote %q while disabled", buf.String())
	}
}
