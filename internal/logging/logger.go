package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Attribute keys shared by every component so log lines can be filtered per deployment.
const (
	AttrEnvironment  = "environment"
	AttrRevision     = "revision"
	AttrPrevious     = "previous"
	AttrTarget       = "target"
	AttrStep         = "step"
	AttrPhase        = "phase"
	AttrDeploymentID = "deployment_id"
	AttrCheck        = "check"
	AttrAction       = "action"
	AttrCommand      = "command"
)

// Format selects the slog handler used by NewLogger.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func NewLogger(level slog.Level, w io.Writer, format Format) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Level returns DEBUG when debug is set, INFO otherwise.
func Level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Discard returns a logger that drops everything. Used by tests and by library callers
// that do not care about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func LogFatal(logger *slog.Logger, format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
