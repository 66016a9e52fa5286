package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interrors "github.com/streed/notes-browser/internal/errors"
)

func TestGetDefaultDataDirectory(t *testing.T) {
	tests := []struct {
		name     string
		xdgHome  string
		expected string
	}{
		{
			name:     "With XDG_DATA_HOME set",
			xdgHome:  "/custom/data",
			expected: "/custom/data/notes-browser",
		},
		{
			name:    "Without XDG_DATA_HOME",
			xdgHome: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdgHome)
			result := GetDefaultDataDirectory()

			if tt.xdgHome == "" {
				homeDir, _ := os.UserHomeDir()
				assert.Equal(t, filepath.Join(homeDir, ".local", "share", "notes-browser"), result)
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tempDir)
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvDebug, "")

	cfg, err := LoadFrom(filepath.Join(tempDir, "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/v1", cfg.APIURL)
	assert.Equal(t, 12, cfg.PerPage)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDelay())
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.Equal(t, time.Duration(0), cfg.StaleTime())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, filepath.Join(tempDir, "notes-browser", "notes.db"), cfg.GetDatabasePath())
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "notes-browser", "config.json")
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvDebug, "")

	dataDir := filepath.Join(tempDir, "test-data")
	testConfig := &Config{
		APIURL:        "http://notes.test/api",
		APIToken:      "secret",
		PerPage:       20,
		DebounceMS:    250,
		FetchRetries:  0,
		DataDirectory: dataDir,
		Debug:         true,
	}

	require.NoError(t, SaveTo(testConfig, configFile))

	info, err := os.Stat(configFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(configFile)
	require.NoError(t, err)

	assert.Equal(t, "http://notes.test/api", loaded.APIURL)
	assert.Equal(t, "secret", loaded.APIToken)
	assert.Equal(t, 20, loaded.PerPage)
	assert.Equal(t, 250*time.Millisecond, loaded.DebounceDelay())
	assert.Equal(t, 0, loaded.FetchRetries, "explicit zero retries must survive a round trip")
	assert.True(t, loaded.Debug)
	assert.Equal(t, filepath.Join(dataDir, "notes.db"), loaded.GetDatabasePath())
}

func TestLoadFromInvalidJSON(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configFile, []byte("{not json"), 0600))

	_, err := LoadFrom(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveTo(&Config{APIURL: "http://from-file"}, configFile))

	t.Setenv(EnvAPIURL, "http://from-env")
	t.Setenv(EnvAPIToken, "env-token")
	t.Setenv(EnvDebug, "true")

	cfg, err := LoadFrom(configFile)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.APIURL)
	assert.Equal(t, "env-token", cfg.APIToken)
	assert.True(t, cfg.Debug)

	t.Setenv(EnvDebug, "maybe")
	_, err = LoadFrom(configFile)
	assert.Error(t, err)
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:  "api url",
			key:   "api-url",
			value: "http://other/api",
			check: func(t *testing.T, cfg *Config) { assert.Equal(t, "http://other/api", cfg.APIURL) },
		},
		{
			name:  "per page",
			key:   "per-page",
			value: "24",
			check: func(t *testing.T, cfg *Config) { assert.Equal(t, 24, cfg.PerPage) },
		},
		{
			name:    "per page out of range",
			key:     "per-page",
			value:   "1000",
			wantErr: interrors.ErrInvalidPerPage,
		},
		{
			name:    "non numeric",
			key:     "debounce-ms",
			value:   "soon",
			wantErr: interrors.ErrInvalidNumber,
		},
		{
			name:  "debug yes",
			key:   "debug",
			value: "yes",
			check: func(t *testing.T, cfg *Config) { assert.True(t, cfg.Debug) },
		},
		{
			name:    "debug invalid",
			key:     "debug",
			value:   "perhaps",
			wantErr: interrors.ErrInvalidBoolean,
		},
		{
			name:  "data dir regenerates database path",
			key:   "data-dir",
			value: "/tmp/notes-data",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, filepath.Join("/tmp/notes-data", "notes.db"), cfg.GetDatabasePath())
			},
		},
		{
			name:    "unknown key",
			key:     "colour",
			value:   "blue",
			wantErr: interrors.ErrUnknownConfigKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := getDefaultConfig()
			cfg.applyDefaults()

			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, &cfg)
		})
	}
}
