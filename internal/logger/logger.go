// Package logger is the small logging seam shared by relaymon's components.
// Long-running pieces like the tracker take a Logger so their diagnostics can
// be routed, silenced, or captured without coupling them to an output.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger accepts printf-style diagnostics at four levels.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NewEnvLogger returns a Logger writing through the standard log package,
// with every line prefixed (e.g. "[tracker]"). Debug output stays silent
// unless the RELAYMON_DEBUG environment variable is set; the variable is
// checked per call, so enabling it at command startup takes effect
// everywhere.
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

type envLogger struct {
	prefix string
}

func (l *envLogger) emit(tag, format string, args []interface{}) {
	if tag != "" {
		format = tag + ": " + format
	}
	log.Printf(l.prefix+" "+format, args...)
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if os.Getenv("RELAYMON_DEBUG") == "" {
		return
	}
	l.emit("", format, args)
}

func (l *envLogger) Info(format string, args ...interface{})  { l.emit("", format, args) }
func (l *envLogger) Warn(format string, args ...interface{})  { l.emit("WARN", format, args) }
func (l *envLogger) Error(format string, args ...interface{}) { l.emit("ERROR", format, args) }

// Noop returns a Logger that discards everything. It is the default inside
// components so callers that don't care about diagnostics pass nothing.
func Noop() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// LogMessage is one line captured by a BufferLogger.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger records messages in order so tests can assert on what a
// component logged.
type BufferLogger struct {
	Messages []LogMessage
}

// NewBufferLogger returns an empty capturing logger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) record(level, format string, args []interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.record("debug", format, args) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.record("info", format, args) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.record("warn", format, args) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.record("error", format, args) }

// HasLevel reports whether any message was captured at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear drops all captured messages.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}
