package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "userscript.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: bolt
  path: /var/lib/userscript/scripts.bolt
delivery:
  max_length: 4096
  safety_margin: 100
  chunk_size: 1000
log:
  level: debug
  format: json
browser:
  remote_url: ws://127.0.0.1:9222/devtools/browser/abc
  binding: us_control
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bolt", cfg.DB.Driver)
	assert.Equal(t, "/var/lib/userscript/scripts.bolt", cfg.DB.Path)
	assert.Equal(t, DeliveryConfig{MaxLength: 4096, SafetyMargin: 100, ChunkSize: 1000}, cfg.Delivery)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB, "unset keys keep defaults")
	assert.Equal(t, "us_control", cfg.Browser.Binding)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown section", "server:\n  port: 1\n"},
		{"unknown key", "db:\n  host: x\n"},
		{"bad driver", "db:\n  driver: postgres\n"},
		{"negative chunk", "delivery:\n  chunk_size: -1\n"},
		{"string limit", "delivery:\n  max_length: big\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad binding", "browser:\n  binding: \"not valid\"\n"},
		{"empty path", "db:\n  path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "db: [unterminated\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "db:\n  path: from-file.db\nlog:\n  level: warn\n")
	t.Setenv("USERSCRIPT_DB_PATH", "from-env.db")
	t.Setenv("USERSCRIPT_DELIVERY_CHUNK_SIZE", "512")
	t.Setenv("USERSCRIPT_BROWSER_HEADLESS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.DB.Path)
	assert.Equal(t, 512, cfg.Delivery.ChunkSize)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "warn", cfg.Log.Level, "file value kept when env is unset")
}

func TestLoad_EnvNotANumber(t *testing.T) {
	t.Setenv("USERSCRIPT_DELIVERY_MAX_LENGTH", "lots")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_EnvBadDriver(t *testing.T) {
	t.Setenv("USERSCRIPT_DB_DRIVER", "mysql")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_IgnoresUnprefixedEnv(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	t.Setenv("LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "userscripts.db", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestValidate_MarginBelowMax(t *testing.T) {
	cfg := Default()
	cfg.Delivery.MaxLength = 100
	cfg.Delivery.SafetyMargin = 100
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Delivery.SafetyMargin = 99
	assert.NoError(t, cfg.Validate())
}
