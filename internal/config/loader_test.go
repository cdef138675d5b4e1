package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shurlinet/satrelay/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSourceFillsWellKnownID(t *testing.T) {
	path := writeConfig(t, "role: source\nlisten: 127.0.0.1:9000\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.ID)
	assert.Equal(t, "hamming74", cfg.FEC.Codec)
}

func TestLoadSinkFillsWellKnownID(t *testing.T) {
	path := writeConfig(t, "role: sink\nlisten: 127.0.0.1:9999\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.ID)
}

func TestLoadRelayRequiresID(t *testing.T) {
	path := writeConfig(t, "role: relay\nlisten: 127.0.0.1:9001\n")

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrMissingID)
}

func TestLoadRelayWithID(t *testing.T) {
	path := writeConfig(t, "role: relay\nid: 3\nlisten: 127.0.0.1:9003\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ID)
}

func TestLoadUnknownRole(t *testing.T) {
	path := writeConfig(t, "role: mothership\n")

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrUnknownRole)
}

func TestLoadRejectsFutureVersion(t *testing.T) {
	path := writeConfig(t, "version: 99\nrole: source\n")

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrConfigVersionTooNew)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestLoadRejectsWorldReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("role: source\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestDefaultsApplied(t *testing.T) {
	path := writeConfig(t, "role: source\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	d := config.Defaults()
	assert.Equal(t, d.ScanInterval, cfg.ScanInterval)
	assert.Equal(t, d.SendInterval, cfg.SendInterval)
	assert.Equal(t, d.HTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, d.AssetsDir, cfg.AssetsDir)
	assert.Equal(t, d.GroupID, cfg.GroupID)
}
