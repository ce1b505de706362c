// Package tealogger is a small file-backed logger for the operator
// console (internal/tui). The console owns the terminal via bubbletea, so
// it cannot share stdout with the process-wide slog logger; instead it
// appends lines to per-level files opened lazily on each call.
package tealogger

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Logger writes debug and error lines for one named console component.
type Logger struct {
	name      string
	debug     bool
	debugFile string
	errorFile string
}

// New returns a Logger for name. Debug logging is off by default; pass
// WithDebugOn to enable it.
func New(name string, opts ...TeaLoggerOption) Logger {
	started := time.Now().Format(time.RFC3339)
	l := Logger{
		name:      name,
		debug:     false,
		debugFile: "./console-debug.log",
		errorFile: fmt.Sprintf("./console-error-%s.log", started),
	}

	for _, opt := range opts {
		opt(&l)
	}

	l.Debug(fmt.Sprintf("console logger %q started at %s", name, started))

	return l
}

type TeaLoggerOption func(l *Logger)

// WithDebugOn enables debug-level logging.
func WithDebugOn() TeaLoggerOption {
	return func(l *Logger) { l.debug = true }
}

// WithDebugFile overrides the default debug log path.
func WithDebugFile(fileName string) TeaLoggerOption {
	return func(l *Logger) { l.debugFile = fileName }
}

// WithErrorFile overrides the default error log path.
func WithErrorFile(fileName string) TeaLoggerOption {
	return func(l *Logger) { l.errorFile = fileName }
}

// Error appends msg and things to the error log. A failure to open the
// file is reported on stderr and otherwise swallowed: the console must
// never crash because its own logging couldn't write.
func (l Logger) Error(msg string, things ...any) {
	l.writeLine(l.errorFile, "error", msg, things)
}

// Debug appends msg and things to the debug log, if debug logging is on.
func (l Logger) Debug(msg string, things ...any) {
	if !l.debug {
		return
	}
	l.writeLine(l.debugFile, "debug", msg, things)
}

// Debugf formats layout with things and logs it via Debug.
func (l Logger) Debugf(layout string, things ...any) {
	l.Debug(fmt.Sprintf(layout, things...))
}

func (l Logger) writeLine(path, level, msg string, things []any) {
	f, err := tea.LogToFile(path, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tealogger: open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	line := make([]string, 1+len(things))
	line[0] = fmt.Sprintf("[%s] %s", l.name, msg)
	for i, thing := range things {
		line[i+1] = fmt.Sprintf("%v", thing)
	}
	fmt.Fprintln(f, strings.Join(line, " "))
}
