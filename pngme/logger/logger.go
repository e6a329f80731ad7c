package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LogLevelSilent disables all logging
	LogLevelSilent LogLevel = iota
	// LogLevelError shows only errors
	LogLevelError
	// LogLevelWarn shows warnings and errors
	LogLevelWarn
	// LogLevelInfo shows info, warnings, and errors (verbose mode)
	LogLevelInfo
	// LogLevelDebug shows all logs including per-chunk parse details
	LogLevelDebug
)

var levelNames = map[LogLevel]string{
	LogLevelSilent: "SILENT",
	LogLevelError:  "ERROR",
	LogLevelWarn:   "WARN",
	LogLevelInfo:   "INFO",
	LogLevelDebug:  "DEBUG",
}

// String returns the upper-case name of the level
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// Logger provides structured logging with levels
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	output io.Writer
}

var defaultLogger = &Logger{
	level:  LogLevelError,
	output: os.Stderr,
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = level
}

// GetLogLevel returns the current log level
func GetLogLevel() LogLevel {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return defaultLogger.level
}

// SetOutput redirects the global logger and returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	prev := defaultLogger.output
	defaultLogger.output = w
	return prev
}

// log writes a log message if the level is enabled
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.level {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	message := sanitize(fmt.Sprintf(format, args...))

	fmt.Fprintf(l.output, "[%s] %s: %s\n", timestamp, level, message)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	defaultLogger.log(LogLevelDebug, format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	defaultLogger.log(LogLevelInfo, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	defaultLogger.log(LogLevelWarn, format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	defaultLogger.log(LogLevelError, format, args...)
}

// sanitize escapes control bytes so chunk payloads cannot rewrite the terminal
func sanitize(message string) string {
	if strings.IndexFunc(message, isControl) < 0 {
		return message
	}

	var b strings.Builder
	for _, r := range message {
		if isControl(r) {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
