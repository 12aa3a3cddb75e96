// Package settings persists configuration saved through the API so it
// survives restarts and overrides the YAML file on the next startup.
package settings

import (
	"encoding/json"
	"log/slog"

	"github.com/natfisher/daybook/internal/config"
	"github.com/natfisher/daybook/internal/storage"
)

const aiKey = "settings_ai"

// savedAI holds the user-settable fields of the AI configuration. Base
// URLs are deployment concerns and stay with the YAML file.
type savedAI struct {
	Provider     string `json:"provider"`
	APIKey       string `json:"apiKey"`
	GeminiAPIKey string `json:"geminiApiKey"`
	OpenAIAPIKey string `json:"openaiApiKey"`
	GeminiModel  string `json:"geminiModel"`
	OpenAIModel  string `json:"openaiModel"`
}

// Store reads and writes saved settings in the shared key-value database.
type Store struct {
	kv     storage.KV
	logger *slog.Logger
}

// NewStore creates a settings store backed by kv.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger.With("component", "settings")}
}

// LoadAI overlays previously saved settings onto the file-derived base.
// A saved block replaces the user-settable fields wholesale, so a key
// cleared through the API stays cleared after a restart. Missing or
// corrupt state falls back to base; startup never fails here.
func (s *Store) LoadAI(base config.AIConfig) config.AIConfig {
	data, ok, err := s.kv.Get(aiKey)
	if err != nil {
		s.logger.Warn("failed to read saved AI settings, using file config", "error", err)
		return base
	}
	if !ok {
		return base
	}

	var saved savedAI
	if err := json.Unmarshal(data, &saved); err != nil {
		s.logger.Warn("saved AI settings corrupt, using file config", "error", err)
		return base
	}

	base.Provider = saved.Provider
	base.APIKey = saved.APIKey
	base.GeminiAPIKey = saved.GeminiAPIKey
	base.OpenAIAPIKey = saved.OpenAIAPIKey
	base.GeminiModel = saved.GeminiModel
	base.OpenAIModel = saved.OpenAIModel
	return base
}

// SaveAI writes the user-settable fields of cfg.
func (s *Store) SaveAI(cfg config.AIConfig) error {
	return storage.SaveJSON(s.kv, aiKey, savedAI{
		Provider:     cfg.Provider,
		APIKey:       cfg.APIKey,
		GeminiAPIKey: cfg.GeminiAPIKey,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		GeminiModel:  cfg.GeminiModel,
		OpenAIModel:  cfg.OpenAIModel,
	})
}
