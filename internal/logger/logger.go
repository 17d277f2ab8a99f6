// ABOUTME: Leveled logging on top of the standard log package with verbosity control
// ABOUTME: Tagged loggers prefix every line with a connection or component name

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var verbose atomic.Bool

// SetVerbose enables or disables verbose (DEBUG) logging
func SetVerbose(v bool) {
	verbose.Store(v)
}

// IsVerbose returns current verbose setting
func IsVerbose() bool {
	return verbose.Load()
}

// SetOutput sets the output destination for logs. nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	log.SetOutput(w)
}

// Logger tags every message with a fixed prefix such as "[conn_1a2b3c4d]".
type Logger struct {
	tag string
}

// With returns a Logger whose lines start with "[tag] ".
func With(tag string) *Logger {
	return &Logger{tag: "[" + tag + "] "}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if IsVerbose() {
		output("DEBUG", l.tag, format, args)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	output("INFO", l.tag, format, args)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	output("WARN", l.tag, format, args)
}

func (l *Logger) Error(format string, args ...interface{}) {
	output("ERROR", l.tag, format, args)
}

// Debug logs at DEBUG level (only shown when verbose)
func Debug(format string, args ...interface{}) {
	if IsVerbose() {
		output("DEBUG", "", format, args)
	}
}

// Info logs at INFO level (always shown)
func Info(format string, args ...interface{}) {
	output("INFO", "", format, args)
}

// Warn logs at WARN level (always shown)
func Warn(format string, args ...interface{}) {
	output("WARN", "", format, args)
}

// Error logs at ERROR level (always shown)
func Error(format string, args ...interface{}) {
	output("ERROR", "", format, args)
}

func output(level, tag, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s%s", level, tag, msg)
}
