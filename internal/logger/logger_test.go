package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		expected string
	}{
		{"Debug", DebugLevel, "DEBUG"},
		{"Info", InfoLevel, "INFO"},
		{"Warn", WarnLevel, "WARN"},
		{"Error", ErrorLevel, "ERROR"},
		{"Fatal", FatalLevel, "FATAL"},
		{"Unknown", LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf)
	l.EnableColor(false)
	l.SetLevel(WarnLevel)

	l.Debug("debug message")
	l.Info("info message")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below the configured level, got %q", buf.String())
	}

	l.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("expected warn message to be written, got %q", buf.String())
	}
}

func TestLoggerSetLevelGetLevel(t *testing.T) {
	l := New()
	l.SetLevel(ErrorLevel)
	if got := l.GetLevel(); got != ErrorLevel {
		t.Errorf("GetLevel() = %v, expected %v", got, ErrorLevel)
	}
}

func TestLoggerWithFieldFormatsKeyValue(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf)
	l.EnableColor(false)

	l.WithField("pool_key", "example.com:22").Info("acquired connection")

	out := buf.String()
	if !strings.Contains(out, "acquired connection") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "pool_key=example.com:22") {
		t.Errorf("expected field in output, got %q", out)
	}
}

func TestLoggerWithFieldsMerges(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf)
	l.EnableColor(false)

	l.WithFields(map[string]interface{}{"a": 1, "b": 2}).Info("multi field")

	out := buf.String()
	if !strings.Contains(out, "a=1") || !strings.Contains(out, "b=2") {
		t.Errorf("expected both fields in output, got %q", out)
	}
}

func TestLogEntryWithError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf)
	l.EnableColor(false)

	l.WithField("op", "acquire").WithError(errTest).Error("failed")

	out := buf.String()
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected wrapped error in output, got %q", out)
	}
}

func TestLoggerSetPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf)
	l.EnableColor(false)
	l.SetPrefix("connpool")

	l.Info("starting")

	if !strings.Contains(buf.String(), "[connpool]") {
		t.Errorf("expected prefix in output, got %q", buf.String())
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	var buf bytes.Buffer
	if isTerminal(&buf) {
		t.Error("expected a bytes.Buffer to never be reported as a terminal")
	}
}

var errTest = testError("boom")

type testError string

func (e testError) Error() string { return string(e) }
