// Package logger provides the structured, leveled logger and the console
// formatting helpers used by the poolctl CLI. The pool and transport/sshconn
// packages do not log.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// LogLevel represents the severity level of a log entry
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

var levelColor = map[LogLevel]*color.Color{
	DebugLevel: color.New(color.FgHiBlack),
	InfoLevel:  color.New(color.FgBlue),
	WarnLevel:  color.New(color.FgYellow),
	ErrorLevel: color.New(color.FgRed),
	FatalLevel: color.New(color.FgRed, color.Bold),
}

// Logger represents a structured logger with level control and colored output
type Logger struct {
	mu          sync.RWMutex
	level       LogLevel
	output      io.Writer
	enableColor bool
	prefix      string
	fields      map[string]interface{}
}

// LogEntry represents a single log entry with structured data
type LogEntry struct {
	logger    *Logger
	level     LogLevel
	message   string
	fields    map[string]interface{}
	timestamp time.Time
	caller    string
}

// New creates a new logger instance with default settings
func New() *Logger {
	return &Logger{
		level:       InfoLevel,
		output:      os.Stdout,
		enableColor: isTerminal(os.Stdout),
		fields:      make(map[string]interface{}),
	}
}

// NewWithOutput creates a new logger with a specific output writer
func NewWithOutput(output io.Writer) *Logger {
	return &Logger{
		level:       InfoLevel,
		output:      output,
		enableColor: isTerminal(output),
		fields:      make(map[string]interface{}),
	}
}

// SetLevel sets the minimum log level that will be output
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetOutput sets the output destination for the logger
func (l *Logger) SetOutput(output io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = output
	l.enableColor = isTerminal(output)
}

// EnableColor enables or disables colored output
func (l *Logger) EnableColor(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enableColor = enable
}

// SetPrefix sets a prefix for all log messages
func (l *Logger) SetPrefix(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = prefix
}

// WithField returns a new logger entry with the specified field
func (l *Logger) WithField(key string, value interface{}) *LogEntry {
	l.mu.RLock()
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	l.mu.RUnlock()

	fields[key] = value

	return &LogEntry{logger: l, fields: fields, timestamp: time.Now()}
}

// WithFields returns a new logger entry with multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *LogEntry {
	l.mu.RLock()
	allFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		allFields[k] = v
	}
	l.mu.RUnlock()

	for k, v := range fields {
		allFields[k] = v
	}

	return &LogEntry{logger: l, fields: allFields, timestamp: time.Now()}
}

type connIDKey struct{}
type poolKeyLogKey struct{}

// WithContext returns a new logger entry carrying the pool correlation IDs
// present in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *LogEntry {
	entry := &LogEntry{logger: l, fields: make(map[string]interface{}), timestamp: time.Now()}

	if connID := ctx.Value(connIDKey{}); connID != nil {
		entry.fields["conn_id"] = connID
	}
	if key := ctx.Value(poolKeyLogKey{}); key != nil {
		entry.fields["pool_key"] = key
	}

	return entry
}

// WithConnID annotates ctx with a connection correlation ID for logging.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey{}, id)
}

// WithPoolKey annotates ctx with a pool key for logging.
func WithPoolKey(ctx context.Context, key interface{}) context.Context {
	return context.WithValue(ctx, poolKeyLogKey{}, key)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) { l.log(DebugLevel, msg, args...) }

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) { l.log(InfoLevel, msg, args...) }

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) { l.log(WarnLevel, msg, args...) }

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) { l.log(ErrorLevel, msg, args...) }

// Fatal logs a fatal message and exits the program
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log(FatalLevel, msg, args...)
	os.Exit(1)
}

func (l *Logger) log(level LogLevel, msg string, args ...interface{}) {
	l.mu.RLock()
	if level < l.level {
		l.mu.RUnlock()
		return
	}
	l.mu.RUnlock()

	entry := &LogEntry{
		logger:    l,
		level:     level,
		message:   fmt.Sprintf(msg, args...),
		fields:    make(map[string]interface{}),
		timestamp: time.Now(),
		caller:    getCaller(),
	}
	entry.write()
}

// WithField adds a field to this log entry
func (e *LogEntry) WithField(key string, value interface{}) *LogEntry {
	e.fields[key] = value
	return e
}

// WithFields adds multiple fields to this log entry
func (e *LogEntry) WithFields(fields map[string]interface{}) *LogEntry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError adds an error field to this log entry
func (e *LogEntry) WithError(err error) *LogEntry {
	if err != nil {
		e.fields["error"] = err.Error()
	}
	return e
}

// Debug logs this entry as debug level
func (e *LogEntry) Debug(msg string, args ...interface{}) { e.log(DebugLevel, msg, args...) }

// Info logs this entry as info level
func (e *LogEntry) Info(msg string, args ...interface{}) { e.log(InfoLevel, msg, args...) }

// Warn logs this entry as warning level
func (e *LogEntry) Warn(msg string, args ...interface{}) { e.log(WarnLevel, msg, args...) }

// Error logs this entry as error level
func (e *LogEntry) Error(msg string, args ...interface{}) { e.log(ErrorLevel, msg, args...) }

func (e *LogEntry) log(level LogLevel, msg string, args ...interface{}) {
	e.level = level
	e.message = fmt.Sprintf(msg, args...)
	e.write()
}

func (e *LogEntry) write() {
	e.logger.mu.RLock()
	defer e.logger.mu.RUnlock()

	if e.level < e.logger.level {
		return
	}

	var output strings.Builder

	timestamp := e.timestamp.Format("2006-01-02 15:04:05.000")
	levelStr := e.formatLevel()

	caller := e.caller
	if caller == "" {
		caller = getCaller()
	}

	prefix := ""
	if e.logger.prefix != "" {
		prefix = fmt.Sprintf("[%s] ", e.logger.prefix)
	}

	output.WriteString(fmt.Sprintf("%s %s %s%s: %s", timestamp, levelStr, prefix, caller, e.message))

	if len(e.fields) > 0 {
		output.WriteString(" |")
		for key, value := range e.fields {
			output.WriteString(fmt.Sprintf(" %s=%v", key, value))
		}
	}

	output.WriteString("\n")
	fmt.Fprint(e.logger.output, output.String())
}

func (e *LogEntry) formatLevel() string {
	level := e.level.String()
	if !e.logger.enableColor {
		return fmt.Sprintf("[%s]", level)
	}
	c, ok := levelColor[e.level]
	if !ok {
		c = color.New(color.Reset)
	}
	return c.Sprintf("[%s]", level)
}

func getCaller() string {
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		return "unknown"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 0 {
		file = parts[len(parts)-1]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// isTerminal reports whether w is an interactive terminal, used to decide
// whether colored output should be emitted.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Global default logger instance, used by the package-level helpers below.
var defaultLogger = New()

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) { defaultLogger.SetLevel(level) }

// SetOutput sets the output for the default logger
func SetOutput(output io.Writer) { defaultLogger.SetOutput(output) }

// EnableColor enables or disables colors for the default logger
func EnableColor(enable bool) { defaultLogger.EnableColor(enable) }

// Debug logs a debug message via the default logger
func Debug(msg string, args ...interface{}) { defaultLogger.Debug(msg, args...) }

// Info logs an info message via the default logger
func Info(msg string, args ...interface{}) { defaultLogger.Info(msg, args...) }

// Warn logs a warning message via the default logger
func Warn(msg string, args ...interface{}) { defaultLogger.Warn(msg, args...) }

// Error logs an error message via the default logger
func Error(msg string, args ...interface{}) { defaultLogger.Error(msg, args...) }

// Default returns the package-level default logger instance.
func Default() *Logger { return defaultLogger }
