package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Tasks any    `json:"tasks"`
}

// handleChat runs one assistant round trip. Provider failures surface as a
// normal reply inside the 200 response, never as an HTTP error: the chat UI
// renders them like any other assistant message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, mutated := s.assistant.Chat(r.Context(), req.Message)
	if mutated {
		s.broadcastTasks()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, chatResponse{
		Reply: reply,
		Tasks: s.tasks.List(),
	}, s.logger)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"turns": s.assistant.History()}, s.logger)
}

// optimizeSchema constrains the one-shot ordering suggestion. The server
// relays whatever the model returns; it does not reorder anything itself.
var optimizeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"order": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Task IDs in suggested execution order",
		},
		"rationale": map[string]any{
			"type":        "string",
			"description": "One short paragraph explaining the ordering",
		},
	},
	"required": []string{"order"},
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	tasks := s.tasks.List()
	blob, err := json.Marshal(tasks)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "serialize tasks")
		return
	}

	prompt := fmt.Sprintf(
		"Suggest the best order to work through these tasks today, considering priority, duration, and reminder times. Tasks (JSON):\n%s",
		blob,
	)

	raw, err := s.assistant.GenerateJSON(r.Context(), prompt, optimizeSchema)
	if err != nil {
		s.logger.Warn("optimize request failed", "error", err)
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}
