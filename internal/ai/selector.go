package ai

import (
	"log/slog"
	"sync"

	"github.com/natfisher/daybook/internal/config"
)

// Selector resolves the active provider adapter from configuration and
// supports late rebinding: settings saved after construction replace the
// adapter in place without reconstructing the callers.
type Selector struct {
	mu     sync.RWMutex
	client Client
	cfg    config.AIConfig
	logger *slog.Logger
}

// NewSelector resolves an adapter eagerly. It never fails: a missing
// credential yields the Unconfigured stand-in instead.
func NewSelector(cfg config.AIConfig, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Selector{logger: logger}
	s.Rebind(cfg)
	return s
}

// Client returns the currently-resolved adapter.
func (s *Selector) Client() Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Config returns the configuration behind the active adapter.
func (s *Selector) Config() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Rebind re-resolves the adapter from cfg, replacing the active one.
func (s *Selector) Rebind(cfg config.AIConfig) {
	provider := cfg.ResolvedProvider()
	credential := cfg.Credential()

	var client Client
	switch {
	case credential == "":
		client = &Unconfigured{Provider: provider}
	case provider == config.ProviderOpenAI:
		client = NewOpenAIClient(credential, cfg.OpenAIModel, cfg.OpenAIBaseURL, s.logger)
	default:
		client = NewGeminiClient(credential, cfg.GeminiModel, cfg.GeminiBaseURL, s.logger)
	}

	s.mu.Lock()
	s.client = client
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Info("AI provider resolved",
		"provider", provider,
		"configured", credential != "",
	)
}
