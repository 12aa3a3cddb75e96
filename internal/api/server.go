// Package api implements the Daybook HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/natfisher/daybook/internal/ai"
	"github.com/natfisher/daybook/internal/alarm"
	"github.com/natfisher/daybook/internal/assistant"
	"github.com/natfisher/daybook/internal/buildinfo"
	"github.com/natfisher/daybook/internal/note"
	"github.com/natfisher/daybook/internal/profile"
	"github.com/natfisher/daybook/internal/settings"
	"github.com/natfisher/daybook/internal/task"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address   string
	port      int
	tasks     *task.Store
	notes     *note.Store
	profile   *profile.Store
	assistant *assistant.Service
	alarms    *alarm.Engine
	selector  *ai.Selector
	settings  *settings.Store
	hub       *Hub
	logger    *slog.Logger
	server    *http.Server
}

// NewServer creates a new API server.
func NewServer(address string, port int, tasks *task.Store, notes *note.Store, prof *profile.Store, asst *assistant.Service, alarms *alarm.Engine, selector *ai.Selector, saved *settings.Store, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:   address,
		port:      port,
		tasks:     tasks,
		notes:     notes,
		profile:   prof,
		assistant: asst,
		alarms:    alarms,
		selector:  selector,
		settings:  saved,
		hub:       hub,
		logger:    logger,
	}
}

// Handler builds the route table. Exposed separately from Start so tests
// can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	mux.HandleFunc("GET /api/tasks/summary", s.handleTaskSummary)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	mux.HandleFunc("PUT /api/tasks/{id}", s.handleTaskUpdate)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleTaskDelete)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleTaskToggle)

	// Notes
	mux.HandleFunc("GET /api/notes", s.handleNoteList)
	mux.HandleFunc("POST /api/notes", s.handleNoteCreate)
	mux.HandleFunc("PUT /api/notes/{id}", s.handleNoteUpdate)
	mux.HandleFunc("DELETE /api/notes/{id}", s.handleNoteDelete)
	mux.HandleFunc("GET /api/notes/{id}/html", s.handleNoteHTML)

	// Profile and feedback
	mux.HandleFunc("GET /api/profile", s.handleProfileGet)
	mux.HandleFunc("PUT /api/profile", s.handleProfilePut)
	mux.HandleFunc("GET /api/feedback", s.handleFeedbackList)
	mux.HandleFunc("POST /api/feedback", s.handleFeedbackCreate)

	// Assistant
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/history", s.handleChatHistory)
	mux.HandleFunc("POST /api/optimize", s.handleOptimize)

	// Settings
	mux.HandleFunc("GET /api/settings/ai", s.handleAISettingsGet)
	mux.HandleFunc("PUT /api/settings/ai", s.handleAISettingsPut)

	// Alarm
	mux.HandleFunc("GET /api/alarm", s.handleAlarmGet)
	mux.HandleFunc("POST /api/alarm/dismiss", s.handleAlarmDismiss)

	// Events
	if s.hub != nil {
		mux.Handle("GET /api/events", s.hub)
	}

	// Health
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // AI round trips can be slow
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}

// broadcastTasks pushes the current task list to event clients after a
// mutation.
func (s *Server) broadcastTasks() {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(Event{Type: "tasks", Data: s.tasks.List()})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "Daybook",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}
