package api

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/streed/notes-browser/internal/config"
	"github.com/streed/notes-browser/internal/constants"
	interrors "github.com/streed/notes-browser/internal/errors"
	"github.com/streed/notes-browser/internal/logger"
	"github.com/streed/notes-browser/internal/models"
)

// healthPath is the one route served without a bearer token.
const healthPath = "/api/v1/health"

// Version is reported by the health endpoint.
const Version = "1.0.0"

type APIServer struct {
	cfg    *config.Config
	db     *sql.DB
	repo   *models.NoteRepository
	server *http.Server
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewAPIServer(cfg *config.Config, db *sql.DB, repo *models.NoteRepository) *APIServer {
	return &APIServer{
		cfg:  cfg,
		db:   db,
		repo: repo,
	}
}

// Handler builds the full HTTP handler: routes, auth, logging and CORS.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	// Notes endpoints
	api.HandleFunc("/notes", s.handleListNotes).Methods("GET")
	api.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes/{id}", s.handleGetNote).Methods("GET")
	api.HandleFunc("/notes/{id}", s.handleDeleteNote).Methods("DELETE")

	api.HandleFunc("/tags", s.handleListTags).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400, // 24 hours
	})

	return c.Handler(router)
}

func (s *APIServer) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting notes API server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *APIServer) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.LogRequest(r.Method, r.URL.Path, r.RemoteAddr)

		if id := r.Header.Get("X-Request-ID"); id != "" {
			w.Header().Set("X-Request-ID", id)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.LogResponse(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// authMiddleware requires the configured bearer token on everything except
// the health check. With no token configured the API is open.
func (s *APIServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.ServerToken
		if token == "" || r.URL.Path == healthPath {
			next.ServeHTTP(w, r)
			return
		}

		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, interrors.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: statusCode < 400,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

// statusFor maps repository errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, interrors.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, interrors.ErrInvalidNote),
		errors.Is(err, interrors.ErrInvalidTag),
		errors.Is(err, interrors.ErrInvalidPage),
		errors.Is(err, interrors.ErrInvalidPerPage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *APIServer) parseIntQuery(r *http.Request, name string, def int) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return def, nil
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", interrors.ErrInvalidNumber, name, str)
	}
	return n, nil
}

// Handlers

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}

	if err := s.db.Ping(); err != nil {
		health["status"] = "unhealthy"
		health["database_error"] = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *APIServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	page, err := s.parseIntQuery(r, "page", 1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	perPage, err := s.parseIntQuery(r, "perPage", constants.DefaultPerPage)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if perPage > constants.MaxPerPage {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %d exceeds %d", interrors.ErrInvalidPerPage, perPage, constants.MaxPerPage))
		return
	}

	result, err := s.repo.ListPage(page, perPage, r.URL.Query().Get("search"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.repo.GetByID(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	tag, err := models.ParseTag(string(req.Tag))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Tag = tag

	note, err := s.repo.Create(req)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	logger.Debug("Created note %s (%s)", note.ID, note.Title)
	s.writeJSON(w, http.StatusCreated, note)
}

func (s *APIServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.repo.Delete(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	logger.Debug("Deleted note %s", note.ID)
	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.Tags)
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.repo.Count()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	stats := map[string]interface{}{
		"total_notes":   count,
		"per_page":      constants.DefaultPerPage,
		"database_path": s.cfg.GetDatabasePath(),
	}

	s.writeJSON(w, http.StatusOK, stats)
}
