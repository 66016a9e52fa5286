package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/browser"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/tui"
	"golang.org/x/term"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse notes in the terminal",
	Long: `Open an interactive note browser.

Type to search (applied after a short pause), use the left and right arrows
to page, ctrl+n to create a note and ctrl+c to quit.

Log output goes to browse.log in the data directory while the browser is open.`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("browse needs an interactive terminal; use 'notes-browser list' instead")
	}

	logPath := filepath.Join(appConfig.DataDirectory, "browse.log")
	if err := os.MkdirAll(appConfig.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger.SetOutput(logFile)
	defer logger.SetOutput(os.Stderr)

	updates := tui.NewUpdates()
	controller := newController(browser.OnChange(updates.OnChange))
	defer controller.Close()

	logger.Info("Browsing notes at %s", appConfig.APIURL)
	program := tea.NewProgram(tui.New(controller, updates), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
