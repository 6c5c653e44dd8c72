// Package logscan reads captured librarian logs back and summarizes the
// warnings and errors they contain.
package logscan

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yildizm/go-logparser"
)

// Level represents the severity of a log entry
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name; unknown names are INFO
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Entry is one parsed log line
type Entry struct {
	Timestamp time.Time `json:"timestamp,omitempty"`
	Level     Level     `json:"-"`
	LevelName string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Line      int       `json:"line"`
}

// textLine matches the bracketed layout: "[15:04:05.000] WARN [component] message"
var textLine = regexp.MustCompile(`^\[[^\]]*\]\s+(DEBUG|INFO|WARN|ERROR|FATAL)\s+\[([^\]]+)\]\s?(.*)$`)

// componentField picks component=... out of logfmt remnants
var componentField = regexp.MustCompile(`(?:^|\s)component=("[^"]*"|\S+)`)

// Convert maps a parsed line onto an Entry, recovering level and component
// from the bracketed text layout when the parser left them in the message
func Convert(entry *logparser.LogEntry, line int) Entry {
	e := Entry{
		Timestamp: entry.Timestamp,
		Level:     ParseLevel(entry.Level),
		Message:   strings.TrimSpace(entry.Message),
		Line:      line,
	}

	if m := textLine.FindStringSubmatch(e.Message); m != nil {
		e.Level = ParseLevel(m[1])
		e.Component = m[2]
		e.Message = m[3]
	} else if m := componentField.FindStringSubmatch(e.Message); m != nil {
		e.Component = strings.Trim(m[1], `"`)
	}

	e.LevelName = e.Level.String()
	return e
}

// ParseFormat returns a parser for format: auto, json, logfmt or text
func ParseFormat(format string) (logparser.Parser, error) {
	switch strings.ToLower(format) {
	case "", "auto":
		return logparser.New(), nil
	case "json":
		return logparser.NewWithFormat(logparser.FormatJSON), nil
	case "logfmt":
		return logparser.NewWithFormat(logparser.FormatLogfmt), nil
	case "text":
		return logparser.NewWithFormat(logparser.FormatText), nil
	default:
		return nil, fmt.Errorf("unknown format %s. Available formats: auto, json, logfmt, text", format)
	}
}

// Parse parses log text with p, skipping blank lines
func Parse(p logparser.Parser, text string, firstLine int) ([]Entry, error) {
	lines := make([]string, 0)
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	parsed, err := p.ParseString(strings.Join(lines, "\n"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse logs: %w", err)
	}

	entries := make([]Entry, len(parsed))
	for i := range parsed {
		entries[i] = Convert(&parsed[i], firstLine+i)
	}
	return entries, nil
}

// ParseFile parses a whole log file
func ParseFile(path, format string) ([]Entry, error) {
	p, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	entries, err := Parse(p, string(data), 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no log entries found")
	}
	return entries, nil
}

// Report summarizes a log
type Report struct {
	Total      int            `json:"total"`
	Counts     map[string]int `json:"counts"`
	Warnings   int            `json:"warnings"`
	Errors     int            `json:"errors"`
	Components []Component    `json:"components"`
	Recent     []Entry        `json:"recent"`
	Start      time.Time      `json:"start,omitempty"`
	End        time.Time      `json:"end,omitempty"`
}

// Component counts warnings and errors raised by one component
type Component struct {
	Name     string `json:"name"`
	Warnings int    `json:"warnings"`
	Errors   int    `json:"errors"`
}

// Summarize counts entries per level and keeps the last recent
// warning-or-worse entries, oldest first
func Summarize(entries []Entry, recent int) *Report {
	r := &Report{
		Total:      len(entries),
		Counts:     make(map[string]int),
		Components: []Component{},
		Recent:     []Entry{},
	}

	byName := make(map[string]*Component)
	var important []Entry
	for _, e := range entries {
		r.Counts[e.Level.String()]++

		if !e.Timestamp.IsZero() {
			if r.Start.IsZero() || e.Timestamp.Before(r.Start) {
				r.Start = e.Timestamp
			}
			if e.Timestamp.After(r.End) {
				r.End = e.Timestamp
			}
		}

		if e.Level < LevelWarn {
			continue
		}
		important = append(important, e)

		name := e.Component
		if name == "" {
			name = "main"
		}
		c, ok := byName[name]
		if !ok {
			c = &Component{Name: name}
			byName[name] = c
		}
		if e.Level == LevelWarn {
			r.Warnings++
			c.Warnings++
		} else {
			r.Errors++
			c.Errors++
		}
	}

	for _, c := range byName {
		r.Components = append(r.Components, *c)
	}
	sort.Slice(r.Components, func(i, j int) bool {
		a, b := r.Components[i], r.Components[j]
		if a.Errors+a.Warnings != b.Errors+b.Warnings {
			return a.Errors+a.Warnings > b.Errors+b.Warnings
		}
		return a.Name < b.Name
	})

	if recent > 0 && len(important) > recent {
		important = important[len(important)-recent:]
	}
	r.Recent = append(r.Recent, important...)
	return r
}

// Important reports whether an entry deserves attention
func (e Entry) Important() bool {
	return e.Level >= LevelWarn
}
