package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogMutation(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentLedger, Handler: slog.NewTextHandler(&buf, nil)})
	sl := NewStructuredLogger(l)

	sl.LogMutation(context.Background(), OpAdd, "personal", "2024-03", nil)
	sl.LogMutation(context.Background(), OpDelete, "group", "ev-1", errors.New("locked"))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], "target=2024-03") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "error=locked") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestFromContextDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}
}
