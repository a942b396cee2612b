// logx.go — Minimal level-gated logger.
//
// Debug output is a boolean-gated fmt.Fprintf to stderr, keeping the
// logging surface small rather than pulling in a structured-logging
// dependency for two log levels.
package logx

import (
	"fmt"
	"os"
)

// Logger writes warn-level messages always and debug-level messages
// only when Debug is enabled. The zero value is ready to use.
type Logger struct {
	Debug  bool
	prefix string
}

// New builds a Logger with the given prefix, e.g. "[monitorcore]".
func New(prefix string, debug bool) *Logger {
	return &Logger{Debug: debug, prefix: prefix}
}

// Warnf logs a warning. Protocol violations, capture failures, and
// storage fallbacks are all warning-level.
func (l *Logger) Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, l.prefix+" WARN "+format+"\n", args...)
}

// Debugf logs a debug message only when Debug is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.Debug {
		return
	}
	fmt.Fprintf(os.Stderr, l.prefix+" DEBUG "+format+"\n", args...)
}
