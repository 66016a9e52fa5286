package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/streed/notes-browser/internal/browser"
	"github.com/streed/notes-browser/internal/config"
	"github.com/streed/notes-browser/internal/constants"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/models"
)

// NotesServer exposes a browser controller as MCP tools. Searches are
// committed immediately rather than debounced.
type NotesServer struct {
	cfg        *config.Config
	controller *browser.Controller
	mcpServer  *server.MCPServer

	// Serializes tool calls so each sees the controller state it set up
	mu sync.Mutex
}

func NewNotesServer(cfg *config.Config, controller *browser.Controller) *NotesServer {
	ns := &NotesServer{
		cfg:        cfg,
		controller: controller,
	}

	ns.mcpServer = server.NewMCPServer(
		"notes-browser",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)

	ns.registerTools()
	ns.registerResources()

	return ns
}

func (s *NotesServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *NotesServer) registerTools() {
	listNotesTool := mcp.NewTool("list_notes",
		mcp.WithDescription("List one page of notes, optionally filtered by a case-insensitive search over title and content"),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (default: 1)"),
		),
		mcp.WithString("search",
			mcp.Description("Search text (optional)"),
		),
	)
	s.mcpServer.AddTool(listNotesTool, s.handleListNotes)

	createNoteTool := mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("The title of the note (%d-%d characters)", constants.MinTitleLength, constants.MaxTitleLength)),
		),
		mcp.WithString("content",
			mcp.Description(fmt.Sprintf("The content of the note (up to %d characters)", constants.MaxContentLength)),
		),
		mcp.WithString("tag",
			mcp.Description("One of Todo, Work, Personal, Meeting, Shopping (default: Todo)"),
		),
	)
	s.mcpServer.AddTool(createNoteTool, s.handleCreateNote)

	deleteNoteTool := mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The ID of the note to delete"),
		),
	)
	s.mcpServer.AddTool(deleteNoteTool, s.handleDeleteNote)
}

func (s *NotesServer) registerResources() {
	viewResource := mcp.NewResource("notes://view",
		"Browser View",
		mcp.WithResourceDescription("Current search, page and listed notes"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(viewResource, s.handleView)

	configResource := mcp.NewResource("notes://config",
		"Configuration",
		mcp.WithResourceDescription("Get current notes-browser configuration"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(configResource, s.handleConfig)
}

// Tool handlers
func (s *NotesServer) handleListNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_notes")

	page := request.GetInt("page", 1)
	search := request.GetString("search", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.controller.Goto(ctx, page, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if view.Err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", view.Err)
	}

	return mcp.NewToolResultText(formatView(view)), nil
}

func (s *NotesServer) handleCreateNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: create_note")

	title, err := request.RequireString("title")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'title': %w", err)
	}

	tag, err := models.ParseTag(request.GetString("tag", ""))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	note, err := s.controller.SubmitNote(ctx, models.CreateNoteRequest{
		Title:   title,
		Content: request.GetString("content", ""),
		Tag:     tag,
	})
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note created successfully with ID: %s\nTitle: %s\nTag: %s", note.ID, note.Title, note.Tag)), nil
}

func (s *NotesServer) handleDeleteNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: delete_note")

	id, err := request.RequireString("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	note, err := s.controller.DeleteNote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete note: %w", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Successfully deleted note %s (%s)", note.ID, note.Title)), nil
}

// Resource handlers
func (s *NotesServer) handleView(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://view")

	view := s.controller.View()
	payload := map[string]interface{}{
		"search":      view.DebouncedSearch,
		"page":        view.Page,
		"per_page":    view.PerPage,
		"total_pages": view.TotalPages,
		"notes":       view.Notes,
	}
	if view.Err != nil {
		payload["error"] = view.Err.Error()
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode view: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *NotesServer) handleConfig(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://config")

	content := fmt.Sprintf(`Notes Browser Configuration:
- API URL: %s
- Per Page: %d
- Debounce: %s
- Fetch Retries: %d
- Debug Mode: %v`,
		s.cfg.APIURL,
		s.cfg.PerPage,
		s.cfg.DebounceDelay(),
		s.cfg.FetchRetries,
		s.cfg.Debug)

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     content,
		},
	}, nil
}

func formatView(view browser.View) string {
	if len(view.Notes) == 0 {
		if view.DebouncedSearch != "" {
			return fmt.Sprintf("No notes found matching %q.", view.DebouncedSearch)
		}
		return "No notes found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Page %d of %d", view.Page, view.TotalPages)
	if view.DebouncedSearch != "" {
		fmt.Fprintf(&b, " (search: %q)", view.DebouncedSearch)
	}
	b.WriteString(":\n\n")

	offset := (view.Page - 1) * view.PerPage
	for i, note := range view.Notes {
		fmt.Fprintf(&b, "%d. [ID: %s] %s [%s] (Created: %s)\n   %s\n\n",
			offset+i+1, note.ID, note.Title, note.Tag,
			note.CreatedAt.Format("2006-01-02"),
			note.Preview(constants.ShortPreviewLength))
	}
	return b.String()
}
