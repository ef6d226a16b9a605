package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandler_RendersOneLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.Info("http.request",
		slog.String("method", "POST"),
		slog.String("path", "/api/v1/Sessions/Create"),
		slog.Int("status", 201),
		slog.Int64("duration_ms", 12),
	)

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", out)
	}
	for _, want := range []string{
		"[INFO]",
		"http.request",
		"method=" + ansiCyan + "POST" + ansiReset,
		"status=" + ansiGreen + "201" + ansiReset,
		"duration_ms=" + ansiDim + "12ms" + ansiReset,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
}

func TestPrettyHandler_GroupPrefixAndQuoting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil)).WithGroup("db")

	log.Warn("db.slow_query", slog.String("query", "select 1"))

	out := buf.String()
	if !strings.Contains(out, "[WARN]") {
		t.Fatalf("missing level tag: %q", out)
	}
	if !strings.Contains(out, `db.query="select 1"`) {
		t.Fatalf("expected group-prefixed quoted attr in %q", out)
	}
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("dropped")
	log.Error("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record should have been filtered: %q", out)
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "[ERROR]") {
		t.Fatalf("error record missing: %q", out)
	}
}

func TestColorizeStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want string
	}{
		{code: 204, want: ansiGreen + "204" + ansiReset},
		{code: 302, want: ansiMagenta + "302" + ansiReset},
		{code: 422, want: ansiYellow + "422" + ansiReset},
		{code: 500, want: ansiRed + "500" + ansiReset},
	}
	for _, tc := range cases {
		if got := colorizeStatus(tc.code); got != tc.want {
			t.Fatalf("colorizeStatus(%d)=%q want=%q", tc.code, got, tc.want)
		}
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: `""`},
		{in: "plain", want: "plain"},
		{in: "two words", want: `"two words"`},
		{in: `a"b`, want: `"a\"b"`},
	}
	for _, tc := range cases {
		if got := quoteIfNeeded(tc.in); got != tc.want {
			t.Fatalf("quoteIfNeeded(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}
