package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

type notePayload struct {
	Content string `json:"content"`
	Color   string `json:"color,omitempty"`
}

func (s *Server) handleNoteList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"notes": s.notes.List()}, s.logger)
}

func (s *Server) handleNoteCreate(w http.ResponseWriter, r *http.Request) {
	var req notePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := s.notes.Create(req.Content, req.Color)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, n, s.logger)
}

func (s *Server) handleNoteUpdate(w http.ResponseWriter, r *http.Request) {
	var req notePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := s.notes.Update(r.PathValue("id"), req.Content)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, n, s.logger)
}

func (s *Server) handleNoteDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(r.PathValue("id")); err != nil {
		s.errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNoteHTML renders a note's markdown content to HTML for the
// read-only preview view.
func (s *Server) handleNoteHTML(w http.ResponseWriter, r *http.Request) {
	n, ok := s.notes.Get(r.PathValue("id"))
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "note not found")
		return
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(n.Content), &buf); err != nil {
		s.logger.Error("markdown render failed", "note", n.ID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
