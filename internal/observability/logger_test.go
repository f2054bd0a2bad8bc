package observability

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kdelwat9/snap2mealie/internal/config"
)

func TestNewLoggerConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "snap2mealie",
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("hello from the test")
	assert.Contains(t, buf.String(), "hello from the test")
	assert.Contains(t, buf.String(), "snap2mealie")
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggerConfig{
		Level:  "warn",
		Format: "json",
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("below threshold")
	logger.Warn("at threshold")

	out := buf.String()
	assert.NotContains(t, out, "below threshold")
	assert.Contains(t, out, "at threshold")
}

func TestNewLoggerInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggerConfig{
		Level:  "not-a-level",
		Format: "json",
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("info still logs")
	assert.Contains(t, buf.String(), "info still logs")
}

func TestNewLoggerWithFileCore(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "run.log")

	logger, err := NewLogger(config.LoggerConfig{
		Level:   "info",
		Format:  "console",
		LogFile: logFile,
		MaxSize: 1,
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("written to both cores")
	Sync(logger)

	assert.Contains(t, buf.String(), "written to both cores")
	assert.FileExists(t, logFile)
}

func TestSyncNilLogger(t *testing.T) {
	// Must not panic.
	Sync(nil)
}
