package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/streed/notes-browser/internal/constants"
	interrors "github.com/streed/notes-browser/internal/errors"
)

// Environment variables that override values from the config file.
const (
	EnvAPIURL   = "NOTES_API_URL"
	EnvAPIToken = "NOTES_API_TOKEN"
	EnvDebug    = "NOTES_DEBUG"
)

type Config struct {
	// Remote notes API
	APIURL                string `json:"api_url"`
	APIToken              string `json:"api_token,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`

	// Browsing behaviour
	PerPage      int `json:"per_page"`
	DebounceMS   int `json:"debounce_ms"`
	FetchRetries int `json:"fetch_retries"`
	StaleSeconds int `json:"stale_seconds"`

	// Reference server storage
	DataDirectory string `json:"data_directory,omitempty"`
	DatabasePath  string `json:"database_path,omitempty"`
	ServerToken   string `json:"server_token,omitempty"`

	Debug bool `json:"debug"`
}

// getDefaultConfig returns a fresh copy of the default configuration
func getDefaultConfig() Config {
	return Config{
		APIURL:                "http://localhost:8080/api/v1",
		RequestTimeoutSeconds: int(constants.DefaultRequestTimeout / time.Second),
		PerPage:               constants.DefaultPerPage,
		DebounceMS:            int(constants.DefaultDebounceDelay / time.Millisecond),
		FetchRetries:          constants.DefaultFetchRetries,
		StaleSeconds:          0, // Fresh until invalidated
		DataDirectory:         "", // Will be set to ~/.local/share/notes-browser
		Debug:                 false,
	}
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "notes-browser", "config.json"), nil
}

func GetDefaultDataDirectory() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", ".notes-browser")
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "notes-browser")
}

// Load reads the config file, fills defaults and applies environment
// overrides. A missing file yields the defaults.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(configPath string) (*Config, error) {
	// A .env in the working directory is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := getDefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := getDefaultConfig()

	if c.APIURL == "" {
		c.APIURL = defaults.APIURL
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	if c.PerPage <= 0 || c.PerPage > constants.MaxPerPage {
		c.PerPage = defaults.PerPage
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = defaults.DebounceMS
	}
	if c.FetchRetries < 0 {
		c.FetchRetries = 0
	}
	if c.StaleSeconds < 0 {
		c.StaleSeconds = 0
	}
	if c.DataDirectory == "" {
		c.DataDirectory = GetDefaultDataDirectory()
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDirectory, "notes.db")
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDebug, v, err)
		}
		c.Debug = debug
	}
	return nil
}

func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, configPath)
}

// SaveTo writes cfg as JSON to configPath.
func SaveTo(cfg *Config, configPath string) error {
	// Create config directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write config file with secure permissions
	if err := os.WriteFile(configPath, data, constants.ConfigFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// InitializeConfig writes a fresh default configuration pointing at apiURL.
func InitializeConfig(apiURL, apiToken, dataDir string) (*Config, error) {
	cfg := getDefaultConfig()

	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	cfg.APIToken = apiToken
	if dataDir != "" {
		cfg.DataDirectory = dataDir
	}
	cfg.applyDefaults()

	if err := Save(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) GetDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDirectory, "notes.db")
}

func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// StaleTime is how long a cached page stays fresh; zero means until invalidated.
func (c *Config) StaleTime() time.Duration {
	return time.Duration(c.StaleSeconds) * time.Second
}

// Keys accepted by Set, in display order.
var Keys = []string{
	"api-url",
	"api-token",
	"per-page",
	"debounce-ms",
	"fetch-retries",
	"request-timeout-seconds",
	"stale-seconds",
	"data-dir",
	"server-token",
	"debug",
}

// Set assigns a single configuration value by its CLI key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api-url":
		c.APIURL = value
	case "api-token":
		c.APIToken = value
	case "per-page":
		n, err := parseInt(value)
		if err != nil {
			return err
		}
		if n <= 0 || n > constants.MaxPerPage {
			return fmt.Errorf("%w: %d (1-%d)", interrors.ErrInvalidPerPage, n, constants.MaxPerPage)
		}
		c.PerPage = n
	case "debounce-ms":
		n, err := parseInt(value)
		if err != nil {
			return err
		}
		c.DebounceMS = n
	case "fetch-retries":
		n, err := parseInt(value)
		if err != nil {
			return err
		}
		c.FetchRetries = n
	case "request-timeout-seconds":
		n, err := parseInt(value)
		if err != nil {
			return err
		}
		c.RequestTimeoutSeconds = n
	case "stale-seconds":
		n, err := parseInt(value)
		if err != nil {
			return err
		}
		c.StaleSeconds = n
	case "data-dir":
		c.DataDirectory = value
		c.DatabasePath = "" // Will be regenerated
	case "server-token":
		c.ServerToken = value
	case "debug":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Debug = b
	default:
		return fmt.Errorf("%w: %s", interrors.ErrUnknownConfigKey, key)
	}

	c.applyDefaults()
	return nil
}

func parseInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", interrors.ErrInvalidNumber, value)
	}
	return n, nil
}

func parseBool(value string) (bool, error) {
	switch value {
	case constants.BoolTrue, constants.BoolOne, constants.BoolYes:
		return true, nil
	case constants.BoolFalse, constants.BoolZero, constants.BoolNo:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s", interrors.ErrInvalidBoolean, value)
}
