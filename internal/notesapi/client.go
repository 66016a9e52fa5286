package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/streed/notes-browser/internal/config"
	interrors "github.com/streed/notes-browser/internal/errors"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/models"
)

// Client talks to a remote notes API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Envelope is the body shape of every notes API response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notes API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("notes API returned status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return interrors.ErrUnauthorized
	case http.StatusNotFound:
		return interrors.ErrNoteNotFound
	}
	return interrors.ErrUnexpectedCode
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from the API settings in cfg.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.APIURL,
		WithToken(cfg.APIToken),
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
	)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchNotes retrieves one page of notes. Failures are wrapped in a
// FetchError.
func (c *Client) FetchNotes(ctx context.Context, page, perPage int, search string) (*models.NotesPage, error) {
	wrap := func(err error) error {
		return &interrors.FetchError{Page: page, PerPage: perPage, Search: search, Err: err}
	}

	if page < 1 {
		return nil, wrap(fmt.Errorf("%w: %d", interrors.ErrInvalidPage, page))
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	if search != "" {
		query.Set("search", search)
	}

	logger.Debug("Fetching notes page %d (perPage: %d, search: %q)", page, perPage, search)

	var result models.NotesPage
	if err := c.do(ctx, http.MethodGet, "/notes?"+query.Encode(), nil, &result); err != nil {
		return nil, wrap(err)
	}
	if result.Notes == nil {
		result.Notes = []models.Note{}
	}
	if result.TotalPages < 0 {
		result.TotalPages = 0
	}

	logger.Debug("Fetched %d notes (total pages: %d)", len(result.Notes), result.TotalPages)
	return &result, nil
}

// CreateNote submits a new note. Failures are wrapped in a CreateError.
func (c *Client) CreateNote(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, &interrors.CreateError{Err: err}
	}

	var note models.Note
	if err := c.do(ctx, http.MethodPost, "/notes", req, &note); err != nil {
		return nil, &interrors.CreateError{Err: err}
	}

	logger.Debug("Created note %s", note.ID)
	return &note, nil
}

// DeleteNote removes a note by ID and returns the deleted note.
func (c *Client) DeleteNote(ctx context.Context, id string) (*models.Note, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", interrors.ErrNoteNotFound)
	}

	var note models.Note
	if err := c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, &note); err != nil {
		return nil, fmt.Errorf("failed to delete note %s: %w", id, err)
	}

	logger.Debug("Deleted note %s", id)
	return &note, nil
}

// Ping checks that the API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debug("Failed to close response body: %v", err)
		}
	}()
	logger.LogResponse(method, path, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if !env.Success {
		return fmt.Errorf("notes API reported failure: %s", env.Error)
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.New("notes API response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
