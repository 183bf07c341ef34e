package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VALIDATOR_CONFIG", "PORT", "DATABASE_URL", "VALIDATOR_WORKERS",
		"VALIDATOR_RUN_TIMEOUT", "VALIDATOR_DEFAULT_YEAR", "VALIDATOR_CATALOGUE_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 60*time.Second, cfg.RunTimeout)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/lac")
	t.Setenv("VALIDATOR_WORKERS", "3")
	t.Setenv("VALIDATOR_RUN_TIMEOUT", "5s")
	t.Setenv("VALIDATOR_DEFAULT_YEAR", "2023")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "postgres://localhost/lac", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.RunTimeout)
	assert.Equal(t, 2023, cfg.DefaultYear)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	testCases := map[string]string{
		"VALIDATOR_WORKERS":      "many",
		"VALIDATOR_RUN_TIMEOUT":  "soon",
		"VALIDATOR_DEFAULT_YEAR": "next",
	}
	for key, value := range testCases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}

	clearEnv(t)
	t.Setenv("VALIDATOR_WORKERS", "0")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "workers")
}

func TestFromEnvLayersFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "validator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\nworkers: 2\nrun_timeout: 10s\ndefault_year: 2022\n"), 0o600))
	t.Setenv("VALIDATOR_CONFIG", path)
	t.Setenv("VALIDATOR_WORKERS", "4")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.RunTimeout)
	assert.Equal(t, 2022, cfg.DefaultYear)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0o600))
	assert.Error(t, LoadFile(path, &cfg))
}

func TestValidate(t *testing.T) {
	good := Default()
	assert.NoError(t, good.Validate())

	bad := good
	bad.Addr = ""
	assert.Error(t, bad.Validate())

	bad = good
	bad.RunTimeout = 0
	assert.Error(t, bad.Validate())

	bad = good
	bad.DefaultYear = -1
	assert.Error(t, bad.Validate())
}
