package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffered(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: "json", Output: &buf})
	require.NoError(t, err)
	return l, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "console", ""} {
		l, err := New(Config{Level: "info", Format: format, Output: &bytes.Buffer{}})
		require.NoError(t, err, format)
		assert.NotNil(t, l.Slog())
	}
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newBuffered(t, "debug")
	cases := map[string]func(string, ...any){
		"DEBUG": l.Debug,
		"INFO":  l.Info,
		"WARN":  l.Warn,
		"ERROR": l.Error,
	}
	for level, fn := range cases {
		buf.Reset()
		fn("hello", "component", "hashing")
		entry := decode(t, buf)
		assert.Equal(t, level, entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "hashing", entry["component"])
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBuffered(t, "info")
	l.With("service", "websec").Info("started")
	assert.Equal(t, "websec", decode(t, buf)["service"])
}

func TestSetLevel(t *testing.T) {
	l, buf := newBuffered(t, "error")
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	SetLevel("debug")
	t.Cleanup(func() { SetLevel("info") })
	l.Info("kept")
	assert.NotZero(t, buf.Len())
	assert.Equal(t, "debug", GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "debug", "DEBUG": "debug", "info": "info",
		"warn": "warn", "warning": "warn", "error": "error",
		"bogus": "info", "": "info",
	}
	t.Cleanup(func() { SetLevel("info") })
	for in, want := range tests {
		SetLevel(in)
		assert.Equal(t, want, GetLevel(), in)
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("WARNING"))
	assert.False(t, ValidLevel("verbose"))
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	require.NoError(t, err)
	l.Info("plain", "password", "hunter2")
	out := buf.String()
	assert.True(t, strings.Contains(out, "msg=plain"), out)
	assert.NotContains(t, out, "hunter2")
}

func TestDefaultLogger(t *testing.T) {
	require.NotNil(t, Default())

	l, buf := newBuffered(t, "info")
	prev := Default()
	SetDefault(l)
	t.Cleanup(func() { SetDefault(prev) })

	Info("via default")
	assert.Equal(t, "via default", decode(t, buf)["msg"])
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	l.WithContext(context.Background()).With("a", 1).Info("still nothing")
}
