package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{" WARN ", slog.LevelWarn, false},
		{"", slog.LevelInfo, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
}

func TestServiceAndComponentAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WARN, Output: &buf, Service: "hallbook-server"})

	log.Info("dropped")
	assert.Zero(t, buf.Len(), "records below the level are discarded")

	log.Component("reminders").Warn("scan failed", "error", "boom")
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hallbook-server", record[SERVICE])
	assert.Equal(t, "reminders", record[COMPONENT])
	assert.Equal(t, "scan failed", record["msg"])
}
