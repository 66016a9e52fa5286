package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/browser"
	"github.com/streed/notes-browser/internal/config"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/notesapi"
)

var (
	appConfig *config.Config
	debugFlag bool
	Version   = "dev" // Version is set from main.go
)

var rootCmd = &cobra.Command{
	Use:     "notes-browser",
	Short:   "Browse, search and create notes on a notes API",
	Version: Version,
	Long: `notes-browser browses, searches, pages through and creates short notes
stored behind a notes HTTP API.

Run 'notes-browser serve' to host a local SQLite-backed API, then
'notes-browser browse' to open the terminal browser against it.

First time users should run 'notes-browser init' to set up the configuration.`,
}

func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initAppConfig)
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func initAppConfig() {
	// init and config manage the file themselves
	if len(os.Args) > 1 && (os.Args[1] == "init" || os.Args[1] == "config") {
		return
	}

	var err error
	appConfig, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		fmt.Fprintf(os.Stderr, "Please run 'notes-browser init' to set up the configuration.\n")
		os.Exit(1)
	}

	if debugFlag || appConfig.Debug {
		logger.SetDebugMode(true)
		logger.Debug("Configuration loaded from: %s", func() string {
			path, _ := config.GetConfigPath()
			return path
		}())
		logger.Debug("API URL: %s", appConfig.APIURL)
		logger.Debug("Per page: %d, debounce: %s, fetch retries: %d",
			appConfig.PerPage, appConfig.DebounceDelay(), appConfig.FetchRetries)
		logger.Debug("Data directory: %s", appConfig.DataDirectory)
	}
}

// newController builds a controller talking to the configured notes API.
func newController(opts ...browser.Option) *browser.Controller {
	client := notesapi.NewClientFromConfig(appConfig)
	return browser.New(client, append(browser.ConfigOptions(appConfig), opts...)...)
}
