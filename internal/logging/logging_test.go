package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/userscript/internal/config"
)

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", zap.String("script", "ns:a"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"script":"ns:a"`)
	assert.Contains(t, out, `"level":"INFO"`)
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "debug", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("details")
	require.NoError(t, logger.Sync())
	assert.Contains(t, buf.String(), "details")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "userscript.log")
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{
		Level:      "warn",
		Format:     "console",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("below level")
	logger.Warn("to both sinks")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both sinks"`)
	assert.NotContains(t, string(data), "below level")
	assert.Contains(t, buf.String(), "to both sinks")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}
