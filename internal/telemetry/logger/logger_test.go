package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"default config", DefaultConfig()},
		{"text format", Config{Level: "debug", Format: "text"}},
		{"console format", Config{Level: "info", Format: "console"}},
		{"nil output", Config{Level: "info", Format: "json", Output: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if l == nil {
				t.Fatal("New() returned nil logger")
			}
			if l.Slog() == nil {
				t.Fatal("Slog() returned nil")
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")

	tests := []struct {
		level   string
		logFunc func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("gateway connection enabled", "environment", "Production")

			entry := decodeEntry(t, buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "gateway connection enabled" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["environment"] != "Production" {
				t.Errorf("environment = %v", entry["environment"])
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.With("component", "credwatch").Info("bundle changed")

	entry := decodeEntry(t, buf)
	if entry["component"] != "credwatch" {
		t.Errorf("component = %v, want credwatch", entry["component"])
	}
}

func TestLogger_SlogSharesRedaction(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Slog().Info("enabling", "credential_password", "hunter2", "credential_path", "/etc/push.p12")

	entry := decodeEntry(t, buf)
	if entry["credential_password"] != redactedValue {
		t.Errorf("credential_password = %v, want redacted", entry["credential_password"])
	}
	if entry["credential_path"] != "/etc/push.p12" {
		t.Errorf("credential_path = %v, want it unredacted", entry["credential_path"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn", "json")

	l.Debug("debug message")
	l.Info("info message")
	if buf.Len() > 0 {
		t.Error("Debug/Info messages should be filtered when level is warn")
	}

	l.Warn("warn message")
	if buf.Len() == 0 {
		t.Error("Warn message should be logged")
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "error", "json")

	l.Info("info message")
	if buf.Len() > 0 {
		t.Error("Info should be filtered at error level")
	}

	SetLevel("debug")

	l.Info("info message after level change")
	if buf.Len() == 0 {
		t.Error("Info should be logged after level changed to debug")
	}
	if level := GetLevel(); level != "debug" {
		t.Errorf("GetLevel() = %q, want %q", level, "debug")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "debug"},
		{"DEBUG", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"invalid", "info"},
		{"", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			if got := GetLevel(); got != tt.expected {
				t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")
	prev := Default()
	SetDefault(l)
	t.Cleanup(func() { SetDefault(prev) })

	tests := []struct {
		name    string
		logFunc func(string, ...any)
	}{
		{"Debug", Debug},
		{"Info", Info},
		{"Warn", Warn},
		{"Error", Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("test message")
			if buf.Len() == 0 {
				t.Errorf("%s() produced no output", tt.name)
			}
		})
	}
}

func TestLogger_WithContext(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.WithContext(context.Background()).Info("test message")

	if buf.Len() == 0 {
		t.Error("Expected log output")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("DefaultConfig().Level = %q, want %q", cfg.Level, "info")
	}
	if cfg.Format != "json" {
		t.Errorf("DefaultConfig().Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.Output == nil {
		t.Error("DefaultConfig().Output should not be nil")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "text")

	l.Info("gateway connection disabled", "connection_id", "01J0000000")

	output := buf.String()
	if !strings.Contains(output, "gateway connection disabled") {
		t.Errorf("Text output should contain message, got: %s", output)
	}
	if !strings.Contains(output, "connection_id=01J0000000") {
		t.Errorf("Text output should contain connection_id, got: %s", output)
	}
}
