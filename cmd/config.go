package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/config"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage notes-browser configuration",
	Long:  `View and manage notes-browser configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current notes-browser configuration settings.`,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Available keys:
  - api-url: Base URL of the notes API
  - api-token: Bearer token sent to the notes API
  - per-page: Notes per page (1-100)
  - debounce-ms: Search debounce delay in milliseconds
  - fetch-retries: Retries after a failed list fetch (0 disables)
  - request-timeout-seconds: HTTP timeout for API calls
  - stale-seconds: Age after which cached pages are refetched (0 = until invalidated)
  - data-dir: Data directory for the 'serve' database
  - server-token: Bearer token required by 'serve' (empty = open)
  - debug: Enable/disable debug logging (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configShowYAML bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configShowCmd.Flags().BoolVar(&configShowYAML, "yaml", false, "Print the configuration as YAML")
}

// configView is the key/value form shown by 'config show'.
type configView struct {
	ConfigFile            string `yaml:"config-file"`
	APIURL                string `yaml:"api-url"`
	APIToken              string `yaml:"api-token"`
	PerPage               int    `yaml:"per-page"`
	DebounceMS            int    `yaml:"debounce-ms"`
	FetchRetries          int    `yaml:"fetch-retries"`
	RequestTimeoutSeconds int    `yaml:"request-timeout-seconds"`
	StaleSeconds          int    `yaml:"stale-seconds"`
	DataDir               string `yaml:"data-dir"`
	DatabasePath          string `yaml:"database-path"`
	ServerToken           string `yaml:"server-token"`
	Debug                 bool   `yaml:"debug"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	view := configView{
		ConfigFile:            configPath,
		APIURL:                cfg.APIURL,
		APIToken:              maskSecret(cfg.APIToken),
		PerPage:               cfg.PerPage,
		DebounceMS:            cfg.DebounceMS,
		FetchRetries:          cfg.FetchRetries,
		RequestTimeoutSeconds: cfg.RequestTimeoutSeconds,
		StaleSeconds:          cfg.StaleSeconds,
		DataDir:               cfg.DataDirectory,
		DatabasePath:          cfg.GetDatabasePath(),
		ServerToken:           maskSecret(cfg.ServerToken),
		Debug:                 cfg.Debug,
	}

	if configShowYAML {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(view)
	}

	fmt.Println("=== Notes Browser Configuration ===")
	fmt.Printf("Config file:              %s\n", view.ConfigFile)
	fmt.Printf("api-url:                  %s\n", view.APIURL)
	fmt.Printf("api-token:                %s\n", view.APIToken)
	fmt.Printf("per-page:                 %d\n", view.PerPage)
	fmt.Printf("debounce-ms:              %d\n", view.DebounceMS)
	fmt.Printf("fetch-retries:            %d\n", view.FetchRetries)
	fmt.Printf("request-timeout-seconds:  %d\n", view.RequestTimeoutSeconds)
	if view.StaleSeconds > 0 {
		fmt.Printf("stale-seconds:            %d\n", view.StaleSeconds)
	} else {
		fmt.Printf("stale-seconds:            0 (until invalidated)\n")
	}
	fmt.Printf("data-dir:                 %s\n", view.DataDir)
	fmt.Printf("Database path:            %s\n", view.DatabasePath)
	fmt.Printf("server-token:             %s\n", view.ServerToken)
	fmt.Printf("debug:                    %v\n", view.Debug)

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Println(configPath)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if key == "data-dir" {
		value = expandPath(value)
	}
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("%w (keys: %s)", err, strings.Join(config.Keys, ", "))
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Configuration updated: %s = %s\n", key, value)
	return nil
}
