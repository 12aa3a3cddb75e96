package api

import (
	"encoding/json"
	"net/http"
)

// aiSettingsView is what GET returns. Credentials are reported as presence
// flags, never echoed back.
type aiSettingsView struct {
	Provider      string `json:"provider"`
	GeminiModel   string `json:"geminiModel"`
	OpenAIModel   string `json:"openaiModel"`
	Configured    bool   `json:"configured"`
	HasGeminiKey  bool   `json:"hasGeminiKey"`
	HasOpenAIKey  bool   `json:"hasOpenaiKey"`
	HasGenericKey bool   `json:"hasGenericKey"`
}

type aiSettingsUpdate struct {
	Provider     *string `json:"provider"`
	APIKey       *string `json:"apiKey"`
	GeminiAPIKey *string `json:"geminiApiKey"`
	OpenAIAPIKey *string `json:"openaiApiKey"`
	GeminiModel  *string `json:"geminiModel"`
	OpenAIModel  *string `json:"openaiModel"`
}

func (s *Server) handleAISettingsGet(w http.ResponseWriter, r *http.Request) {
	cfg := s.selector.Config()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, aiSettingsView{
		Provider:      cfg.ResolvedProvider(),
		GeminiModel:   cfg.GeminiModel,
		OpenAIModel:   cfg.OpenAIModel,
		Configured:    cfg.Credential() != "",
		HasGeminiKey:  cfg.GeminiAPIKey != "",
		HasOpenAIKey:  cfg.OpenAIAPIKey != "",
		HasGenericKey: cfg.APIKey != "",
	}, s.logger)
}

// handleAISettingsPut applies partial settings, persists them, and rebinds
// the provider selector so the next chat request uses the new adapter
// immediately. Persisted settings override the config file on restart.
func (s *Server) handleAISettingsPut(w http.ResponseWriter, r *http.Request) {
	var req aiSettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.selector.Config()
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&cfg.Provider, req.Provider)
	apply(&cfg.APIKey, req.APIKey)
	apply(&cfg.GeminiAPIKey, req.GeminiAPIKey)
	apply(&cfg.OpenAIAPIKey, req.OpenAIAPIKey)
	apply(&cfg.GeminiModel, req.GeminiModel)
	apply(&cfg.OpenAIModel, req.OpenAIModel)

	if s.settings != nil {
		if err := s.settings.SaveAI(cfg); err != nil {
			s.logger.Error("failed to persist AI settings", "error", err)
			s.errorResponse(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}

	s.selector.Rebind(cfg)
	s.handleAISettingsGet(w, r)
}

type profileUpdate struct {
	Name   string `json:"name"`
	Mantra string `json:"mantra"`
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.profile.Profile(), s.logger)
}

func (s *Server) handleProfilePut(w http.ResponseWriter, r *http.Request) {
	var req profileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := s.profile.SetProfile(req.Name, req.Mantra)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, p, s.logger)
}

func (s *Server) handleFeedbackList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"feedback": s.profile.Feedback()}, s.logger)
}

func (s *Server) handleFeedbackCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := s.profile.AddFeedback(req.Text)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, f, s.logger)
}

func (s *Server) handleAlarmGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if t, ok := s.alarms.Active(); ok {
		writeJSON(w, map[string]any{"active": true, "task": t}, s.logger)
		return
	}
	writeJSON(w, map[string]any{"active": false}, s.logger)
}

func (s *Server) handleAlarmDismiss(w http.ResponseWriter, r *http.Request) {
	s.alarms.Dismiss()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "dismissed"}, s.logger)
}
