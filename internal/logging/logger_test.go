package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLoggerWritesJSONFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("debug", WithWriter(buf))

	l.Info("request handled", String("path", "/a"), Int("status", 200))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "request handled", entries[0]["msg"])
	assert.Equal(t, "/a", entries[0]["path"])
	assert.Equal(t, float64(200), entries[0]["status"])
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("warn", WithWriter(buf))

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too", Err(errors.New("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestLoggerTruncatesLongValues(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("info", WithWriter(buf))

	l.Info("long", String("body", strings.Repeat("x", 250)))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	body := entries[0]["body"].(string)
	assert.True(t, strings.HasSuffix(body, "...[truncated]"))
	assert.Len(t, body, maxValueLen+len("...[truncated]"))
}

func TestTruncationKeepsRunesWhole(t *testing.T) {
	long := "x" + strings.Repeat("é", 100)

	got, ok := sanitizeValue(long).(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "x"+strings.Repeat("é", 49)+"...[truncated]", got)

	assert.Equal(t, "short", sanitizeValue("short"))
	assert.Equal(t, 42, sanitizeValue(42))
}

func TestLoggerSkipsNilError(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("info", WithWriter(buf))

	l.Info("ok", Err(nil))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	_, ok := entries[0]["error"]
	assert.False(t, ok)
}

func TestWithCarriesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("info", WithWriter(buf)).With(String("component", "router"))

	l.Info("registered")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "router", entries[0]["component"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"-1":      slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"3":       slog.LevelWarn,
		"error":   slog.LevelError,
		"5":       slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNopAndOrNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error("ignored", String("k", "v"))
		OrNop(nil).Info("ignored")
	})

	buf := &bytes.Buffer{}
	l := New("info", WithWriter(buf))
	OrNop(l).Info("kept")
	assert.Contains(t, buf.String(), "kept")
}
