package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger wraps slog with helpers shared by the reduction commands.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text logger writing to stderr.
func NewLogger(debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a JSON logger for service deployments.
func NewJSONLogger(debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// LogTracesLoaded records a completed trace load.
func (l *Logger) LogTracesLoaded(kind string, traces, points int) {
	l.Info("traces loaded", "kind", kind, "traces", traces, "points", points)
}

// LogReduction records a completed reduction run.
func (l *Logger) LogReduction(runID string, weeks, snapshots int) {
	l.Info("reduction complete", "run_id", runID, "weeks", weeks, "snapshots", snapshots)
}

// UserMessage prints to stdout for CLI-facing output, keeping log records on
// stderr.
func (l *Logger) UserMessage(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
