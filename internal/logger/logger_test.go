package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{"production uses JSON", "production", true},
		{"development uses pretty", "development", false},
		{"empty environment uses pretty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Writer: &buf, Environment: tt.environment})

			log.Info("probe", "key", "value")
			out := buf.String()
			require.NotEmpty(t, out)

			if tt.wantJSON {
				assert.True(t, strings.HasPrefix(out, "{"), "expected JSON output, got: %s", out)
			} else {
				assert.False(t, strings.HasPrefix(out, "{"), "expected pretty output, got: %s", out)
			}
		})
	}
}

func TestNew_ExplicitFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Environment: "development"})

	log.Info("probe")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	var level slog.LevelVar
	level.Set(slog.LevelWarn)

	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: &level})

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty"})

	log.Info("question created", "question_id", "q-123", "tags", 3)
	out := buf.String()

	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "question created")
	assert.Contains(t, out, "question_id=q-123")
	assert.Contains(t, out, "tags=3")
}

func TestPrettyHandler_LevelFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelDebug})

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "ERR")
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)

	child := h.WithAttrs([]slog.Attr{slog.String("request_id", "req-1")})
	log := slog.New(child)

	log.Info("handled")
	assert.Contains(t, buf.String(), "request_id=req-1")
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithError(assert.AnError).Error("operation failed")

	out := buf.String()
	assert.Contains(t, out, `"error"`)
	assert.Contains(t, out, assert.AnError.Error())
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithField("tag_id", "tag-9").Info("released")

	out := buf.String()
	assert.Contains(t, out, `"tag_id"`)
	assert.Contains(t, out, "tag-9")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelWarn})

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNewPrettyHandler_NilOptions(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, nil)
	require.NotNil(t, h)
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}
