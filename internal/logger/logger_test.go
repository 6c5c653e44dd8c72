package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type staticVerbose bool

func (s staticVerbose) IsVerbose() bool { return bool(s) }

func TestLogger_VerboseGating(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    []string
		absent  []string
	}{
		{"quiet", false, []string{"WARN", "ERROR"}, []string{"DEBUG", "INFO"}},
		{"verbose", true, []string{"DEBUG", "INFO", "WARN", "ERROR"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New("test", staticVerbose(tt.verbose))
			l.SetOutput(&buf)

			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")

			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %s: %q", s, out)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %s: %q", s, out)
				}
			}
		})
	}
}

func TestLogger_TextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("retrieval", staticVerbose(true))
	l.SetOutput(&buf)

	l.InfoWithFields("search done for %s", []Field{Count(3), F("k", 5)}, "q")

	out := buf.String()
	if !strings.Contains(out, "INFO [retrieval] search done for q [count=3 k=5]") {
		t.Errorf("text line = %q", out)
	}
}

func TestLogger_Logfmt(t *testing.T) {
	var buf bytes.Buffer
	l := New("", nil)
	l.SetOutput(&buf)
	l.SetFormat(FormatLogfmt)

	child := l.WithComponent("recommend")
	child.WarnWithFields("selection fallback", []Field{RequestID("abc"), Error(errors.New("no tool call"))})

	out := buf.String()
	for _, want := range []string{
		"level=warn",
		"component=recommend",
		`msg="selection fallback"`,
		"request_id=abc",
		`error="no tool call"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("logfmt line missing %s: %q", want, out)
		}
	}
}

func TestLogger_NoArgsKeepsPercent(t *testing.T) {
	var buf bytes.Buffer
	l := New("x", nil)
	l.SetOutput(&buf)

	l.Warn("100% done")
	if !strings.Contains(buf.String(), "100% done") {
		t.Errorf("message mangled: %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %s, %v", f, err)
	}
	if f, err := ParseFormat("LOGFMT"); err != nil || f != FormatLogfmt {
		t.Errorf("ParseFormat(LOGFMT) = %s, %v", f, err)
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Error("ParseFormat(json) expected error")
	}
}

func TestNop(t *testing.T) {
	Nop().Error("discarded")
}
