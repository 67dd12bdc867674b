// Package logging provides simple leveled logging for the aokit framework.
//
// The framework's own Printf-style methods (Debugf/Infof/Errorf) satisfy
// aokit.Logger directly — Context logs through that narrow interface, never
// this package's concrete type, so an embedder can pass their own logger
// to aokit.NewContext (or replace this package's default with SetDefault)
// without aokit ever importing
// anything but this package. TraceEvent is the one method with aokit's own
// vocabulary baked in: it formats the kind/ao/signal/detail shape of
// aokit.TraceRecord, for aokit.LoggingTraceSink to build a TraceSink
// directly on top of a *Logger instead of every embedder writing their own
// formatter.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger wraps stdlib log with level support.
type Logger struct {
	logger *log.Logger
	level  LogLevel
	mu     sync.Mutex
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logging configuration.
type Config struct {
	Level  LogLevel
	Output io.Writer
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		logger: log.New(output, "", log.LstdFlags),
		level:  config.Level,
	}
}

// Default returns the process-wide default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// formatArgs converts key-value pairs to a trailing " k=v k=v" string.
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var result string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if result != "" {
				result += " "
			}
			result += fmt.Sprintf("%v=%v", args[i], args[i+1])
		}
	}
	if result != "" {
		return " " + result
	}
	return ""
}

func (l *Logger) log(level LogLevel, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("%s %s%s", prefix, msg, formatArgs(args))
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, "[INFO]", msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, "[WARN]", msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, "[ERROR]", msg, args...)
}

// Printf-style logging, used by the AO dispatcher and scheduler where a
// formatted message is more natural than key-value pairs.
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...))
}

// Printf logs at info level, like Infof.
func (l *Logger) Printf(format string, args ...any) {
	l.Infof(format, args...)
}

// TraceEvent logs one framework trace point (a state entry/exit, a
// transition, a pool get/put, a timer arm/fire, ...) at debug level in a
// grep-friendly "kind=... ao=... signal=..." shape. It exists so a
// TraceSink can be built directly on *Logger instead of every embedder
// reinventing a formatter for the handful of fields aokit.TraceRecord
// carries; aokit.LoggingTraceSink is the adapter that calls it. Takes
// plain values rather than aokit.TraceRecord itself so this package never
// has to import the framework it's logging for.
func (l *Logger) TraceEvent(kind, ao string, signal uint32, detail string) {
	msg := fmt.Sprintf("kind=%s ao=%s signal=%d", kind, ao, signal)
	if detail != "" {
		msg += fmt.Sprintf(" detail=%s", detail)
	}
	l.log(LevelDebug, "[TRACE]", msg)
}

// Global convenience functions operating on Default().
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
