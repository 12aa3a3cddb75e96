package api

import (
	"encoding/json"
	"net/http"

	"github.com/natfisher/daybook/internal/task"
)

// taskPayload is the write shape for create and update. Pointers
// distinguish "absent" from zero values on update.
type taskPayload struct {
	Title           *string `json:"title"`
	Notes           *string `json:"notes"`
	Category        *string `json:"category"`
	Priority        *string `json:"priority"`
	DurationMinutes *int    `json:"durationMinutes"`
	ReminderTime    *string `json:"reminderTime"`
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"tasks": s.tasks.List()}, s.logger)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tasks.Get(r.PathValue("id"))
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "task not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, t, s.logger)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req taskPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params := task.CreateParams{}
	if req.Title != nil {
		params.Title = *req.Title
	}
	if req.Notes != nil {
		params.Notes = *req.Notes
	}
	if req.Category != nil {
		params.Category = *req.Category
	}
	if req.Priority != nil {
		params.Priority = *req.Priority
	}
	if req.DurationMinutes != nil {
		params.DurationMinutes = *req.DurationMinutes
	}
	if req.ReminderTime != nil {
		params.ReminderTime = *req.ReminderTime
	}

	t, err := s.tasks.Create(params)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.broadcastTasks()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, t, s.logger)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var req taskPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.tasks.Update(r.PathValue("id"), task.UpdateParams{
		Title:           req.Title,
		Notes:           req.Notes,
		Category:        req.Category,
		Priority:        req.Priority,
		DurationMinutes: req.DurationMinutes,
		ReminderTime:    req.ReminderTime,
	})
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	s.broadcastTasks()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, t, s.logger)
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	t, err := s.tasks.Toggle(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	s.broadcastTasks()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, t, s.logger)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.PathValue("id")); err != nil {
		s.errorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	s.broadcastTasks()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskSummary(w http.ResponseWriter, r *http.Request) {
	open, done := s.tasks.Counts()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"byCategory": s.tasks.Summary(),
		"open":       open,
		"completed":  done,
	}, s.logger)
}
