package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}

	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewHandler(&buf, "warn", "json"))
	logger.Info("dropped")
	logger.Warn("kept", "module", "test")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "test", line["module"])

	buf.Reset()
	slog.New(NewHandler(&buf, "info", "text")).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
