package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9000
  max_connections: 16
websocket:
  enabled: true
  port: 9001
  allowed_origins:
    - "http://localhost:3000"
rpc:
  max_depth: 64
  error_details: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 16, cfg.Server.MaxConnections)
	assert.Equal(t, 1<<20, cfg.Server.MaxLineBytes)
	assert.True(t, cfg.WebSocket.Enabled)
	assert.Equal(t, 9001, cfg.WebSocket.Port)
	assert.Equal(t, "/rpc", cfg.WebSocket.Path)
	assert.True(t, cfg.WebSocket.AllowPost)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.WebSocket.AllowedOrigins)
	assert.Equal(t, 64, cfg.RPC.MaxDepth)
	assert.True(t, cfg.RPC.ErrorDetails)
	assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddr())
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7878", cfg.ServerAddr())
	assert.Equal(t, "127.0.0.1:7879", cfg.WebSocketAddr())
	assert.Equal(t, "127.0.0.1:7880", cfg.ManagementAddr())
	assert.Equal(t, 512, cfg.RPC.MaxDepth)
	assert.False(t, cfg.RPC.ErrorDetails)
	assert.False(t, cfg.Database.Enabled)
	assert.Empty(t, cfg.WebSocket.AllowedOrigins)
	assert.False(t, cfg.WebSocket.Enabled)
	assert.False(t, cfg.Management.Enabled)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RPCLINE_SERVER_PORT", "7001")
	t.Setenv("RPCLINE_RPC_ERROR_DETAILS", "true")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.True(t, cfg.RPC.ErrorDetails)
}

func TestLoad_XDGExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("XDG_DATA_HOME", "")

	cfg, err := Load(writeConfig(t, `
database:
  enabled: true
  path: "$XDG_DATA_HOME/rpcline/db.sqlite"
`))
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/rpcline/db.sqlite", cfg.Database.Path)
}

func TestLoad_NonXDGPathUnchanged(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  path: \"/absolute/path/db.sqlite\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "/absolute/path/db.sqlite", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDefault_FallsBackToXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadDefault("")
	require.NoError(t, err)
	assert.Equal(t, 7878, cfg.Server.Port)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rpcline"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rpcline", "config.yaml"), []byte("server:\n  port: 6000\n"), 0600))

	cfg, err = LoadDefault("")
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Server.Port)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"port too large", "server:\n  port: 70000\n", "server.port"},
		{"negative connections", "server:\n  max_connections: -1\n", "server.max_connections"},
		{"tiny lines", "server:\n  max_line_bytes: 10\n", "server.max_line_bytes"},
		{"zero depth", "rpc:\n  max_depth: 0\n", "rpc.max_depth"},
		{"websocket path", "websocket:\n  enabled: true\n  path: rpc\n", "websocket.path"},
		{"management port", "management:\n  enabled: true\n  port: -5\n", "management.port"},
		{"empty db path", "database:\n  enabled: true\n  path: \"\"\n", "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestYAML(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 1234

	data, err := cfg.YAML()
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, 1234, back.Server.Port)
	assert.Equal(t, cfg.RPC, back.RPC)
}
