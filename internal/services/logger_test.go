package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLogger(buf *bytes.Buffer, level LogLevel, structured bool) *ProductionLogger {
	l := NewWriterLogger(buf, "chat_history", level, structured)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestProductionLogger_StructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	fixedLogger(&buf, LogLevelInfo, true).Error("insert failed", "chat_id", 42, "error", errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "chat_history", entry["service"])
	assert.Equal(t, "insert failed", entry["message"])
	assert.Equal(t, "2024-03-01T12:00:00Z", entry["timestamp"])

	fields := entry["fields"].(map[string]interface{})
	assert.Equal(t, float64(42), fields["chat_id"])
	assert.Equal(t, "boom", fields["error"])
}

func TestProductionLogger_TextEntry(t *testing.T) {
	var buf bytes.Buffer
	fixedLogger(&buf, LogLevelDebug, false).Debug("imported", "count", 3)

	assert.Equal(t, "[2024-03-01T12:00:00Z] DEBUG [chat_history] imported count=3\n", buf.String())
}

func TestProductionLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LogLevelWarn, false)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	assert.Equal(t, 2, strings.Count(buf.String(), "shown"))
	assert.NotContains(t, buf.String(), "hidden")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LogLevelError, ParseLogLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestNewLogger_TestEnvIsNoop(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	_, ok := NewLogger("x", "DEBUG").(*NoOpLogger)
	assert.True(t, ok)
}

func TestNewLogger_UsesGivenLevel(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("LOG_LEVEL", "ERROR")

	logger, ok := NewLogger("x", "debug").(*ProductionLogger)
	require.True(t, ok)
	assert.Equal(t, LogLevelDebug, logger.level)
	assert.False(t, logger.structured)
}
