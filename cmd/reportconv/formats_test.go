package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestFormatsCmd tests listing the supported formats.
func TestFormatsCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewFormatsCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 9 {
		t.Fatalf("expected header and 8 formats, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "FORMAT") {
		t.Errorf("expected header, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "plist") {
		t.Errorf("expected plist first in detection order, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[8], "gcc") {
		t.Errorf("expected gcc last in detection order, got %q", lines[8])
	}
	if !strings.Contains(buf.String(), "clang-tidy-yaml  clang-tidy") {
		t.Errorf("expected clang-tidy row, got:\n%s", buf.String())
	}
}
