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

// VerboseChecker interface for checking verbose state
type VerboseChecker interface {
	IsVerbose() bool
}

// Format selects the line layout
type Format string

const (
	// FormatText writes "[15:04:05.000] LEVEL [component] message [k=v]"
	FormatText Format = "text"

	// FormatLogfmt writes "time=... level=... component=... msg=... k=v"
	FormatLogfmt Format = "logfmt"
)

// ParseFormat validates a format name; empty selects FormatText
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatLogfmt:
		return FormatLogfmt, nil
	default:
		return "", fmt.Errorf("invalid log format: %s (must be one of: text, logfmt)", s)
	}
}

// Logger provides structured logging with verbose support
type Logger struct {
	component      string
	verboseChecker VerboseChecker
	sink           *sink
}

// sink is shared by loggers derived from one another so their lines never interleave
type sink struct {
	mu     sync.Mutex
	writer io.Writer
	format Format
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// New creates a new logger instance
func New(component string, verboseChecker VerboseChecker) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: verboseChecker,
		sink:           &sink{writer: os.Stderr, format: FormatText},
	}
}

// NewWithCallback creates a new logger instance with a callback function
func NewWithCallback(component string, verboseCheck func() bool) *Logger {
	return New(component, &callbackChecker{callback: verboseCheck})
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{sink: &sink{writer: io.Discard, format: FormatText}}
}

// WithComponent creates a logger with a specific component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: l.verboseChecker,
		sink:           l.sink,
	}
}

// SetOutput redirects this logger and every logger derived from it
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.writer = w
}

// SetFormat changes the line layout for this logger and its derivatives
func (l *Logger) SetFormat(f Format) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.format = f
}

// callbackChecker implements VerboseChecker with a callback function
type callbackChecker struct {
	callback func() bool
}

func (c *callbackChecker) IsVerbose() bool {
	if c.callback == nil {
		return false
	}
	return c.callback()
}

func (l *Logger) verbose() bool {
	return l.verboseChecker != nil && l.verboseChecker.IsVerbose()
}

// Debug logs debug messages (only when verbose=true)
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.verbose() {
		l.log("DEBUG", msg, nil, args...)
	}
}

// Info logs informational messages (only when verbose=true)
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.verbose() {
		l.log("INFO", msg, nil, args...)
	}
}

// Warn logs warning messages (always shown)
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log("WARN", msg, nil, args...)
}

// Error logs error messages (always shown)
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log("ERROR", msg, nil, args...)
}

// DebugWithFields logs debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		l.log("DEBUG", msg, fields, args...)
	}
}

// InfoWithFields logs info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		l.log("INFO", msg, fields, args...)
	}
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields []Field, args ...interface{}) {
	l.log("WARN", msg, fields, args...)
}

// ErrorWithFields logs an error with structured fields
func (l *Logger) ErrorWithFields(msg string, fields []Field, args ...interface{}) {
	l.log("ERROR", msg, fields, args...)
}

// log formats and writes log message
func (l *Logger) log(level, msg string, fields []Field, args ...interface{}) {
	now := time.Now()
	component := l.component
	if component == "" {
		component = "main"
	}

	formattedMsg := msg
	if len(args) > 0 {
		formattedMsg = fmt.Sprintf(msg, args...)
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	var logLine string
	if l.sink.format == FormatLogfmt {
		logLine = logfmtLine(now, level, component, formattedMsg, fields)
	} else {
		logLine = textLine(now, level, component, formattedMsg, fields)
	}

	if _, err := io.WriteString(l.sink.writer, logLine); err != nil {
		// Log write failed, but we can't do much about it
		// since this is the logger itself
		_ = err
	}
}

func textLine(now time.Time, level, component, msg string, fields []Field) string {
	fieldStrings := make([]string, 0, len(fields))
	for _, field := range fields {
		fieldStrings = append(fieldStrings, fmt.Sprintf("%s=%v", field.Key, field.Value))
	}

	var fieldsStr string
	if len(fieldStrings) > 0 {
		fieldsStr = fmt.Sprintf(" [%s]", strings.Join(fieldStrings, " "))
	}

	return fmt.Sprintf("[%s] %s [%s] %s%s\n", now.Format("15:04:05.000"), level, component, msg, fieldsStr)
}

func logfmtLine(now time.Time, level, component, msg string, fields []Field) string {
	var b strings.Builder
	b.WriteString("time=")
	b.WriteString(now.Format(time.RFC3339Nano))
	b.WriteString(" level=")
	b.WriteString(strings.ToLower(level))
	b.WriteString(" component=")
	b.WriteString(logfmtValue(component))
	b.WriteString(" msg=")
	b.WriteString(logfmtValue(msg))
	for _, field := range fields {
		b.WriteByte(' ')
		b.WriteString(field.Key)
		b.WriteByte('=')
		b.WriteString(logfmtValue(fmt.Sprint(field.Value)))
	}
	b.WriteByte('\n')
	return b.String()
}

func logfmtValue(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

// Helper functions for common field types
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

func RequestID(id string) Field {
	return Field{Key: "request_id", Value: id}
}
