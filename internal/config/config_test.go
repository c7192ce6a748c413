package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// chdir changes the working directory for the test and restores it on
// cleanup (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Store.Driver)
	assert.Equal(t, "Asia/Kolkata", cfg.KPI.Timezone)
	assert.Equal(t, 10, cfg.KPI.TopLimit)
	assert.Equal(t, 30, cfg.KPI.WindowDays)
	assert.Equal(t, "data/cleaned", cfg.Data.CleanedDir)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "store:\n  driver: sqlite\n  dsn: /tmp/x.db\nkpi:\n  timezone: UTC\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("ORDERPULSE_KPI_TOP_LIMIT", "5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Store.DSN)
	assert.Equal(t, "UTC", cfg.KPI.Timezone)
	assert.Equal(t, 5, cfg.KPI.TopLimit)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	base := Config{
		Store: StoreConfig{Driver: "sqlite"},
		KPI:   KPIConfig{Timezone: "UTC", TopLimit: 10, WindowDays: 30},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Store.Driver = "oracle"
	assert.Error(t, bad.Validate())

	bad = base
	bad.KPI.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = base
	bad.KPI.TopLimit = 0
	assert.Error(t, bad.Validate())
}

func TestMarshalRoundTripsThroughYAML(t *testing.T) {
	cfg := Config{Store: StoreConfig{Driver: "postgres", DSN: "postgres://x"}}
	b, err := cfg.Marshal()
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(b, &back))
	assert.Equal(t, cfg.Store, back.Store)
}
