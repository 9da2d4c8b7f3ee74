package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, 10*time.Second, cfg.Injection.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Injection.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))

	assert.Error(t, err)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stitch.json")
	data := `{"injection": {"timeout": 5000000000}, "logging": {"level": "debug"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Injection.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset fields keep their defaults.
	assert.Equal(t, 100*time.Millisecond, cfg.Injection.PollInterval)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stitch.yaml")
	data := "logging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 10*time.Second, cfg.Injection.Timeout)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadConfig(path)

	assert.Error(t, err)
}

func TestLoadConfig_RejectsNonPositiveTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stitch.json")
	data := `{"injection": {"timeout": -1}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	_, err := LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout must be positive")
}

func TestSaveConfig_RoundTripJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	cfg := DefaultConfig()
	cfg.Injection.Timeout = 3 * time.Second

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveConfig_RoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Logging.Level = "error"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
