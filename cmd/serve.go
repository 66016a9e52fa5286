package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/api"
	"github.com/streed/notes-browser/internal/database"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/models"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the notes HTTP API server",
	Long: `Start a notes API server backed by a local SQLite database.

The server implements the API that 'browse', 'list', 'create', 'delete' and
'mcp' talk to:

  GET    /api/v1/notes?page=&perPage=&search=
  POST   /api/v1/notes
  GET    /api/v1/notes/{id}
  DELETE /api/v1/notes/{id}
  GET    /api/v1/tags
  GET    /api/v1/stats
  GET    /api/v1/health

Set 'server-token' with 'notes-browser config set' to require a bearer token.

Examples:
  notes-browser serve                          # Start on localhost:8080
  notes-browser serve --host 0.0.0.0 --port 3000  # Start on all interfaces, port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to bind the server to")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to bind the server to")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("Initializing notes API server...")

	db, err := database.New(appConfig.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	apiServer := api.NewAPIServer(appConfig, db.Conn(), models.NewNoteRepository(db.Conn()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start(serveHost, servePort)
	}()

	fmt.Printf("\nNotes API Server\n")
	fmt.Printf("-------------------------------------------------\n")
	fmt.Printf("Server URL: http://%s:%d/api/v1\n", serveHost, servePort)
	fmt.Printf("Health:     http://%s:%d/api/v1/health\n", serveHost, servePort)
	fmt.Printf("Database:   %s\n", db.Path())
	if appConfig.ServerToken != "" {
		fmt.Printf("Auth:       bearer token required\n")
	}
	fmt.Printf("\nExample:\n")
	fmt.Printf("   curl 'http://%s:%d/api/v1/notes?page=1&perPage=12'\n", serveHost, servePort)
	fmt.Printf("\nPress Ctrl+C to stop the server\n")
	fmt.Printf("-------------------------------------------------\n\n")

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, shutting down gracefully...", sig)
		if err := apiServer.Stop(); err != nil {
			logger.Error("Error during server shutdown: %v", err)
			return err
		}
		logger.Info("Server stopped successfully")
		return nil
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("Server error: %v", err)
			return err
		}
		return nil
	}
}
