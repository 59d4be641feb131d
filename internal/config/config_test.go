package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 13091, cfg.Gateway.Port)
	assert.Equal(t, "refresh_token.txt", cfg.Steam.TokenFile)
	assert.Equal(t, 10, cfg.Steam.MetadataTimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMergesWithDefaults(t *testing.T) {
	path := writeConfig(t, `
gateway:
  port: 9000
  auth:
    token: sekrit
steam:
  defaultGroupId: "37660928"
  defaultChannelName: "bot-waiting-room"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, "sekrit", cfg.Gateway.Auth.Token)
	assert.Equal(t, "37660928", cfg.Steam.DefaultGroupID)
	// untouched fields keep their defaults
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 10, cfg.Steam.MetadataTimeoutSeconds)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "gateway: [not a map")
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadExpandsTokenEnvRef(t *testing.T) {
	t.Setenv("TEST_GATE_TOKEN", "from-env")
	path := writeConfig(t, `
gateway:
  auth:
    token: ${TEST_GATE_TOKEN}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Gateway.Auth.Token)
}

func TestLoadUnsetEnvRefLeftAlone(t *testing.T) {
	path := writeConfig(t, `
gateway:
  auth:
    token: ${DEFINITELY_UNSET_VAR_42}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${DEFINITELY_UNSET_VAR_42}", cfg.Gateway.Auth.Token)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STEAMGATE_GATEWAY_PORT", "14000")
	t.Setenv("STEAMGATE_LOG_LEVEL", "DEBUG")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 14000, cfg.Gateway.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestExitOnLogoutDefault(t *testing.T) {
	cfg := Defaults()
	assert.True(t, cfg.Gateway.ExitOnLogoutEnabled())

	off := false
	cfg.Gateway.ExitOnLogout = &off
	assert.False(t, cfg.Gateway.ExitOnLogoutEnabled())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Defaults()
	cfg.Gateway.Auth.Token = "t0k3n"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Gateway.Auth.Token, loaded.Gateway.Auth.Token)
	assert.Equal(t, cfg.Gateway.Port, loaded.Gateway.Port)
}
