package settings

import (
	"testing"

	"github.com/natfisher/daybook/internal/config"
	"github.com/natfisher/daybook/internal/storage"
)

type memKV struct {
	data map[string][]byte
}

var _ storage.KV = (*memKV)(nil)

func (m *memKV) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Close() error { return nil }

func TestLoadAIMissingReturnsBase(t *testing.T) {
	s := NewStore(&memKV{data: map[string][]byte{}}, nil)

	base := config.AIConfig{Provider: config.ProviderGemini, GeminiModel: "gemini-2.0-flash"}
	got := s.LoadAI(base)
	if got != base {
		t.Errorf("got = %+v, want base unchanged", got)
	}
}

func TestSaveAILoadAIRoundTrip(t *testing.T) {
	kv := &memKV{data: map[string][]byte{}}
	s := NewStore(kv, nil)

	if err := s.SaveAI(config.AIConfig{
		Provider:     config.ProviderOpenAI,
		OpenAIAPIKey: "sk-test",
		OpenAIModel:  "gpt-4o-mini",
	}); err != nil {
		t.Fatalf("SaveAI failed: %v", err)
	}

	// A fresh store over the same database sees the saved block win over
	// the file-derived base; base URLs are left alone.
	base := config.AIConfig{
		Provider:      config.ProviderGemini,
		GeminiAPIKey:  "from-yaml",
		GeminiBaseURL: "http://test.local",
	}
	got := NewStore(kv, nil).LoadAI(base)

	if got.Provider != config.ProviderOpenAI || got.OpenAIAPIKey != "sk-test" {
		t.Errorf("got = %+v, want saved provider and key", got)
	}
	if got.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, want cleared (saved block replaces user fields)", got.GeminiAPIKey)
	}
	if got.GeminiBaseURL != "http://test.local" {
		t.Errorf("GeminiBaseURL = %q, want preserved from base", got.GeminiBaseURL)
	}
}

func TestLoadAICorruptFallsBack(t *testing.T) {
	kv := &memKV{data: map[string][]byte{
		"settings_ai": []byte("{not json"),
	}}

	base := config.AIConfig{Provider: config.ProviderGemini}
	got := NewStore(kv, nil).LoadAI(base)
	if got != base {
		t.Errorf("got = %+v, want base on corrupt state", got)
	}
}
