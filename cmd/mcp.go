package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for LLM integration",
	Long: `Start a Model Context Protocol (MCP) server that lets LLMs browse and
create notes through the same controller as the terminal browser.

Tools:
- list_notes: One page of notes, with an optional search
- create_note: Create a note with a title, content and tag
- delete_note: Remove a note by ID

Resources:
- notes://view: Current search, page and listed notes
- notes://config: Active configuration

To use with Claude Desktop, add this to your claude_desktop_config.json:
{
  "mcpServers": {
    "notes-browser": {
      "command": "notes-browser",
      "args": ["mcp"]
    }
  }
}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger.Info("Starting MCP server...")

	controller := newController()
	defer controller.Close()

	notesServer := mcp.NewNotesServer(appConfig, controller)
	mcpServer := notesServer.GetMCPServer()

	logger.Info("MCP server ready. Listening on stdio...")
	if err := server.ServeStdio(mcpServer); err != nil {
		if err.Error() != "EOF" {
			logger.Error("MCP server error: %v", err)
			return err
		}
	}

	logger.Info("MCP server shutting down")
	return nil
}
