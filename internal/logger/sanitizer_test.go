package logger

import (
	"errors"
	"testing"
)

func TestSanitizer_Sanitize(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"windows user path", "copy C:\\Users\\john\\dest\\a.txt", "copy ***:\\Users\\***\\dest\\a.txt"},
		{"unix home path", "destination /home/john/.local/share/app", "destination /home/***/.local/share/app"},
		{"mac home path", "reference /Users/jane/bundle", "reference /Users/***/bundle"},
		{"no sensitive data", "change modify on docs/a.txt", "change modify on docs/a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSanitizer_SanitizeArgs(t *testing.T) {
	s := NewSanitizer()

	args := []any{
		"reference", "/home/john/bundle",
		"path", "/home/john/dest",
		"error", errors.New("open /home/john/dest/x: denied"),
		"count", 3,
	}
	got := s.SanitizeArgs(args)

	if got[1] != "/home/***/bundle" {
		t.Errorf("reference value = %v", got[1])
	}
	if got[3] != "/home/***/dest" {
		t.Errorf("path value = %v", got[3])
	}
	if got[5] != "open /home/***/dest/x: denied" {
		t.Errorf("error value = %v", got[5])
	}
	if got[7] != 3 {
		t.Errorf("non-string value changed: %v", got[7])
	}
	if args[1] != "/home/john/bundle" {
		t.Error("SanitizeArgs() mutated its input")
	}
}

func TestSanitizer_AddRule(t *testing.T) {
	s := NewSanitizer()
	if err := s.AddRule(`build-\d+`, "build-N"); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}
	if got := s.Sanitize("reference build-42"); got != "reference build-N" {
		t.Errorf("Sanitize() = %v", got)
	}
	if err := s.AddRule(`(`, ""); err == nil {
		t.Error("AddRule() should reject invalid pattern")
	}
}
