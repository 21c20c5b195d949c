package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var (
	rootInstance *rootLogger
	rootOnce     sync.Once
)

// rootLogger writes formatted lines to stdout and, optionally, a debug file.
type rootLogger struct {
	mu    sync.Mutex
	level LogLevel
	out   io.Writer
	file  *os.File
}

func getRoot() *rootLogger {
	rootOnce.Do(func() {
		rootInstance = newRoot(levelFromEnv(), os.Stdout)
	})
	return rootInstance
}

func newRoot(level LogLevel, out io.Writer) *rootLogger {
	l := &rootLogger{level: level, out: out}

	if path := strings.TrimSpace(os.Getenv("TOURGATE_LOG_FILE")); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(out, "logging: failed to open log file %s: %v\n", path, err)
		} else {
			l.file = file
		}
	}

	return l
}

func levelFromEnv() LogLevel {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TOURGATE_LOG_LEVEL"))) {
	case "debug":
		return DEBUG
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// SetLevel sets the minimum level on the process-wide logger.
func SetLevel(level LogLevel) {
	root := getRoot()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.level = level
}

func (l *rootLogger) log(component string, level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(3)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2025-09-30 12:34:56 [INFO] [Component] file.go:123 - Message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if component == "" {
		component = "TOURGATE"
	}
	message := fmt.Sprintf(format, args...)
	logLine := fmt.Sprintf("%s [%s] [%s] %s:%d - %s\n",
		timestamp, levelToString(level), component, file, line, message)

	sanitized := sanitizeLogLine(logLine)

	fmt.Fprint(l.out, sanitized)
	if l.file != nil {
		fmt.Fprint(l.file, sanitized)
	}
}

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// componentLogger scopes the root logger to a named component.
type componentLogger struct {
	component string
}

// NewComponentLogger creates a logger for a specific component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{component: component}
}

func (l *componentLogger) Debug(format string, args ...any) {
	getRoot().log(l.component, DEBUG, format, args...)
}

func (l *componentLogger) Info(format string, args ...any) {
	getRoot().log(l.component, INFO, format, args...)
}

func (l *componentLogger) Warn(format string, args ...any) {
	getRoot().log(l.component, WARN, format, args...)
}

func (l *componentLogger) Error(format string, args ...any) {
	getRoot().log(l.component, ERROR, format, args...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}
