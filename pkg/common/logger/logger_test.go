package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesJSONWithServiceAndTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "docscan", func(context.Context) string { return "trace-1" })

	log.With("component", "test").Info(context.Background(), "hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "docscan", entry["service"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Contains(t, entry["file"], "logger_test.go")
}

func TestLogger_RespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "docscan", nil)

	log.Info(context.Background(), "dropped")
	log.Debug(context.Background(), "dropped")
	assert.Zero(t, buf.Len())

	log.Warn(context.Background(), "kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogger_EventsFireForLevel(t *testing.T) {
	var got []Record
	events := Events{
		Error: func(_ context.Context, r Record) { got = append(got, r) },
	}

	var buf bytes.Buffer
	log := NewWithMetadata(&buf, LevelDebug, "docscan", nil, events, map[string]string{"host": "h1"})

	log.Info(context.Background(), "not an error")
	log.Error(context.Background(), "boom", "file", "a.txt")

	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Message)
	assert.Equal(t, LevelError, got[0].Level)
	assert.Contains(t, buf.String(), `"host":"h1"`)
}

func TestNoop_DiscardsEverything(t *testing.T) {
	log := Noop().With("component", "x")
	assert.NotPanics(t, func() {
		log.Error(context.Background(), "ignored", "error", assert.AnError)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
