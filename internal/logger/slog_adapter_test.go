package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level Level, format Format) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l, err := NewSlogLogger(Config{
		Level:   level,
		Format:  format,
		Outputs: []OutputConfig{{Type: OutputStdout, Writer: buf}},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	return l, buf
}

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		level     Level
		logged    []string
		notLogged []string
	}{
		{LevelDebug, []string{"d-msg", "i-msg", "w-msg", "e-msg"}, nil},
		{LevelInfo, []string{"i-msg", "w-msg", "e-msg"}, []string{"d-msg"}},
		{LevelWarn, []string{"w-msg", "e-msg"}, []string{"d-msg", "i-msg"}},
		{LevelError, []string{"e-msg"}, []string{"d-msg", "i-msg", "w-msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			l, buf := newBufferLogger(t, tt.level, FormatText)
			l.Debug("d-msg")
			l.Info("i-msg")
			l.Warn("w-msg")
			l.Error("e-msg")

			out := buf.String()
			for _, m := range tt.logged {
				if !strings.Contains(out, m) {
					t.Errorf("missing %q in %s", m, out)
				}
			}
			for _, m := range tt.notLogged {
				if strings.Contains(out, m) {
					t.Errorf("unexpected %q in %s", m, out)
				}
			}
		})
	}
}

func TestSlogLogger_JSONFormat(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatJSON)
	l.Info("change applied", "kind", "create", "path", "a.txt")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "change applied" || entry["kind"] != "create" || entry["path"] != "a.txt" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestSlogLogger_WithSharesLevel(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)
	child := l.With("component", "executor")

	l.level.Set(convertLevel(LevelDebug))
	child.Debug("child debug")

	out := buf.String()
	if !strings.Contains(out, "component=executor") || !strings.Contains(out, "child debug") {
		t.Errorf("child logger output = %s", out)
	}
	if err := child.Shutdown(); err != nil {
		t.Errorf("child Shutdown() error = %v", err)
	}
}

func TestSlogLogger_Sanitization(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)
	l.Info("syncing /home/alice/dest", "reference", "/Users/alice/bundle")

	out := buf.String()
	if strings.Contains(out, "alice") {
		t.Errorf("log output contains a user name: %s", out)
	}
	if !strings.Contains(out, "/home/***/dest") || !strings.Contains(out, "/Users/***/bundle") {
		t.Errorf("log output = %s", out)
	}
}

func TestSlogLogger_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "snapsync.log")

	l, err := NewSlogLogger(Config{
		Level:   LevelInfo,
		Format:  FormatText,
		File:    FileConfig{Enabled: true, Path: logPath, MaxSizeMB: 1, MaxAgeDays: 7, MaxBackups: 3},
		Outputs: []OutputConfig{{Type: OutputFile}},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}

	l.Info("test file logging")
	if err := l.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "test file logging") {
		t.Errorf("log file missing message: %s", content)
	}
}

func TestSlogLogger_FileOutputRequiresPath(t *testing.T) {
	_, err := NewSlogLogger(Config{
		File:    FileConfig{Enabled: true},
		Outputs: []OutputConfig{{Type: OutputFile}},
	})
	if err == nil {
		t.Error("NewSlogLogger() should fail with empty file path")
	}
}

func TestSlogLogger_MultipleOutputs(t *testing.T) {
	buf1 := &bytes.Buffer{}
	buf2 := &bytes.Buffer{}

	l, err := NewSlogLogger(Config{
		Level: LevelInfo,
		Outputs: []OutputConfig{
			{Type: OutputStdout, Writer: buf1},
			{Type: OutputStderr, Writer: buf2},
		},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	defer l.Shutdown()

	l.Info("test multi-output")

	if !strings.Contains(buf1.String(), "test multi-output") || !strings.Contains(buf2.String(), "test multi-output") {
		t.Errorf("both outputs should receive the message")
	}
}
