package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/config"
	"github.com/streed/notes-browser/internal/notesapi"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize notes-browser configuration",
	Long: `Initialize notes-browser configuration interactively or with flags.
This command writes the configuration file and records where the notes API lives.`,
	RunE: runInit,
}

var (
	initAPIURL      string
	initAPIToken    string
	initDataDir     string
	initInteractive bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initAPIURL, "api-url", "", "Notes API base URL (e.g., http://localhost:8080/api/v1)")
	initCmd.Flags().StringVar(&initAPIToken, "api-token", "", "Bearer token for the notes API")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Data directory for the local server database")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Run interactive setup")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Configuration already exists at: %s\n", configPath)
		if !confirm(reader, "Do you want to overwrite it? (y/N): ") {
			fmt.Println("Configuration initialization cancelled.")
			return nil
		}
	}

	if initInteractive || (initAPIURL == "" && initDataDir == "") {
		fmt.Println("=== Notes Browser Configuration Setup ===")
		fmt.Println()

		defaultURL := "http://localhost:8080/api/v1"
		initAPIURL = prompt(reader, "Notes API URL", defaultURL)
		initAPIToken = prompt(reader, "API token (optional)", "")

		dataDir := prompt(reader, "Data directory for 'serve'", config.GetDefaultDataDirectory())
		initDataDir = expandPath(dataDir)
	} else if initDataDir != "" {
		initDataDir = expandPath(initDataDir)
	}

	cfg, err := config.InitializeConfig(initAPIURL, initAPIToken, initDataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	fmt.Println("\n=== Configuration Summary ===")
	fmt.Printf("Config file:        %s\n", configPath)
	fmt.Printf("API URL:            %s\n", cfg.APIURL)
	fmt.Printf("API token:          %s\n", maskSecret(cfg.APIToken))
	fmt.Printf("Data directory:     %s\n", cfg.DataDirectory)
	fmt.Printf("Database path:      %s\n", cfg.GetDatabasePath())
	fmt.Printf("Per page:           %d\n", cfg.PerPage)
	fmt.Printf("Search debounce:    %s\n", cfg.DebounceDelay())

	fmt.Println("\nConfiguration initialized successfully!")

	if confirm(reader, "\nWould you like to test the API connection? (y/N): ") {
		testAPIConnection(cfg)
	}

	return nil
}

func prompt(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

func confirm(reader *bufio.Reader, question string) bool {
	fmt.Print(question)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func maskSecret(s string) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func testAPIConnection(cfg *config.Config) {
	fmt.Printf("\nTesting connection to %s...\n", cfg.APIURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := notesapi.NewClientFromConfig(cfg).Ping(ctx); err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Start a local API with 'notes-browser serve' or check the URL.")
		return
	}
	fmt.Println("Connection OK.")
}
